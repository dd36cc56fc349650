package calendar

import (
	"sort"
	"strconv"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

const (
	DefaultStart       = "08:00"
	DefaultEnd         = "18:00"
	DefaultGranularity = 30
)

// DefaultWeek is the blank weekly pattern: every day inactive, 08:00-18:00.
func DefaultWeek() []agenda.DayPattern {
	days := make([]agenda.DayPattern, agenda.DaysPerWeek)
	for i := range days {
		days[i] = agenda.DayPattern{
			Weekday: agenda.Weekday(i),
			Start:   DefaultStart,
			End:     DefaultEnd,
		}
	}
	return days
}

// Overlay replaces template entries with the loaded ones of the same weekday.
// The result always has one entry per weekday, ordered Sunday first.
func Overlay(template, loaded []agenda.DayPattern) []agenda.DayPattern {
	out := DefaultWeek()
	for _, d := range template {
		if d.Weekday.Valid() {
			out[d.Weekday] = d
		}
	}
	for _, d := range loaded {
		if !d.Weekday.Valid() {
			continue
		}
		if d.Start == "" {
			d.Start = DefaultStart
		}
		if d.End == "" {
			d.End = DefaultEnd
		}
		out[d.Weekday] = d
	}
	return out
}

// Header is the non-day part of the form.
type Header struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Granularity int    `json:"time_granularity"`
	Active      bool   `json:"active"`
	ValidFrom   string `json:"valid_from"`
	ValidUntil  string `json:"valid_until"`
}

// Validate checks the header and weekly pattern. Keys are field names
// ("days", "name", "days.3", ...), values are business error codes.
func Validate(h Header, days []agenda.DayPattern) map[string]string {
	errs := map[string]string{}

	active := 0
	for _, d := range days {
		if !d.Active {
			continue
		}
		active++
		if code := validateDay(d); code != "" {
			errs[dayField(d.Weekday)] = code
		}
	}
	if active == 0 {
		errs["days"] = "at_least_one_day_required"
	}

	if h.Name == "" {
		errs["name"] = "name_required"
	}
	if h.Granularity <= 0 {
		errs["time_granularity"] = "invalid_granularity"
	}
	if h.ValidFrom != "" && h.ValidUntil != "" && h.ValidUntil < h.ValidFrom {
		errs["valid_until"] = "invalid_date_or_time"
	}
	return errs
}

func validateDay(d agenda.DayPattern) string {
	start, err1 := timezone.ParseClock(d.Start)
	end, err2 := timezone.ParseClock(d.End)
	if err1 != nil || err2 != nil || start >= end {
		return "invalid_day_hours"
	}

	if d.BreakStart == "" && d.BreakEnd == "" {
		if d.Capacity != nil && *d.Capacity < 1 {
			return "invalid_capacity"
		}
		return ""
	}
	bs, err1 := timezone.ParseClock(d.BreakStart)
	be, err2 := timezone.ParseClock(d.BreakEnd)
	if err1 != nil || err2 != nil || bs >= be || bs < start || be > end {
		return "invalid_break"
	}
	if d.Capacity != nil && *d.Capacity < 1 {
		return "invalid_capacity"
	}
	return ""
}

func dayField(w agenda.Weekday) string {
	return "days." + strconv.Itoa(int(w))
}

// firstError picks the error reported by Submit; day coverage is checked first.
func firstError(errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}
	if code, ok := errs["days"]; ok {
		return httperr.ErrField("days", code)
	}
	for _, f := range []string{"name", "time_granularity", "valid_until"} {
		if code, ok := errs[f]; ok {
			return httperr.ErrField(f, code)
		}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return httperr.ErrField(keys[0], errs[keys[0]])
}

// ServicePatch lists every association that was loaded or is now selected,
// with its resulting active flag, ordered by service id.
func ServicePatch(original []agenda.ServiceLink, selected map[uint]bool) []agenda.ServiceLink {
	ids := map[uint]struct{}{}
	for _, l := range original {
		ids[l.ServiceID] = struct{}{}
	}
	for id, on := range selected {
		if on {
			ids[id] = struct{}{}
		}
	}

	out := make([]agenda.ServiceLink, 0, len(ids))
	for id := range ids {
		out = append(out, agenda.ServiceLink{ServiceID: id, Active: selected[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out
}

func selectedIDs(selected map[uint]bool) []uint {
	out := make([]uint, 0, len(selected))
	for id, on := range selected {
		if on {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
