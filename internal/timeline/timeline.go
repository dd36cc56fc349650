// Package timeline lays out one calendar's day: time markers and appointment
// blocks positioned proportionally to the minutes they start at. Overlapping
// appointments are not separated; later ones are stacked above earlier ones.
package timeline

import (
	"sort"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

const (
	DefaultDayStart        = 8 * 60
	DefaultDayEnd          = 18 * 60
	DefaultStep            = 30
	DefaultPixelsPerMinute = 2.0
	DefaultMinBlockHeight  = 20.0
)

type Options struct {
	PixelsPerMinute float64
	MinBlockHeight  float64
	// Step is used when the markers do not reveal their own spacing.
	Step int
}

func (o Options) withDefaults() Options {
	if o.PixelsPerMinute <= 0 {
		o.PixelsPerMinute = DefaultPixelsPerMinute
	}
	if o.MinBlockHeight <= 0 {
		o.MinBlockHeight = DefaultMinBlockHeight
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	return o
}

// Item is an appointment as the timeline needs it.
type Item struct {
	AppointmentID   uint          `json:"appointment_id"`
	Time            string        `json:"time"`
	DurationMinutes int           `json:"duration"`
	PetName         string        `json:"pet_name,omitempty"`
	TutorName       string        `json:"tutor_name,omitempty"`
	ServiceName     string        `json:"service_name,omitempty"`
	Status          agenda.Status `json:"status,omitempty"`
}

type Marker struct {
	Time      string  `json:"time"`
	Minute    int     `json:"minute"`
	Top       float64 `json:"top"`
	Available bool    `json:"available"`
}

type Block struct {
	Item
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	ZIndex int     `json:"z_index"`
	Color  string  `json:"color"`
	Label  string  `json:"status_label"`
}

type View struct {
	Markers     []Marker `json:"markers"`
	Blocks      []Block  `json:"blocks"`
	Height      float64  `json:"height"`
	StartMinute int      `json:"start_minute"`
	EndMinute   int      `json:"end_minute"`

	pixelsPerMinute float64
}

// FallbackMarkers generates fixed-interval markers in [start, end) minutes.
func FallbackMarkers(start, end, step int) []string {
	if step <= 0 {
		step = DefaultStep
	}
	out := make([]string, 0, (end-start)/step+1)
	for m := start; m < end; m += step {
		out = append(out, timezone.FormatClock(m/60, m%60))
	}
	return out
}

// MarkersFromSlots returns the server's slot times, or generated markers when
// the server sent none.
func MarkersFromSlots(slots []agenda.TimelineSlot, step int) []string {
	if len(slots) == 0 {
		return FallbackMarkers(DefaultDayStart, DefaultDayEnd, step)
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

// ItemsFromSlots collects the appointments occupying slots. An appointment
// spanning several slots is reported once, at its first slot.
func ItemsFromSlots(slots []agenda.TimelineSlot) []Item {
	seen := make(map[uint]bool)
	var out []Item
	for _, s := range slots {
		if s.Available || s.AppointmentID == 0 || seen[s.AppointmentID] {
			continue
		}
		seen[s.AppointmentID] = true
		out = append(out, Item{
			AppointmentID:   s.AppointmentID,
			Time:            s.Time,
			DurationMinutes: s.DurationMinutes,
			PetName:         s.PetName,
			TutorName:       s.TutorName,
			ServiceName:     s.ServiceName,
			Status:          s.Status,
		})
	}
	return out
}

// FromSlots lays out a server timeline.
func FromSlots(slots []agenda.TimelineSlot, opt Options) View {
	opt = opt.withDefaults()
	v := Layout(MarkersFromSlots(slots, opt.Step), ItemsFromSlots(slots), opt)

	avail := make(map[string]bool, len(slots))
	for _, s := range slots {
		avail[s.Time] = s.Available
	}
	for i := range v.Markers {
		if a, ok := avail[v.Markers[i].Time]; ok {
			v.Markers[i].Available = a
		} else {
			v.Markers[i].Available = len(slots) == 0
		}
	}
	return v
}

// Layout computes vertical offsets for markers and blocks. Unparseable times
// are skipped.
func Layout(markers []string, items []Item, opt Options) View {
	opt = opt.withDefaults()

	minutes := make([]int, 0, len(markers))
	seen := make(map[int]bool, len(markers))
	for _, m := range markers {
		v, err := timezone.ParseClock(m)
		if err != nil || seen[v] {
			continue
		}
		seen[v] = true
		minutes = append(minutes, v)
	}
	sort.Ints(minutes)

	step := opt.Step
	if n := len(minutes); n >= 2 {
		step = minutes[n-1] - minutes[n-2]
	}

	start, end := DefaultDayStart, DefaultDayEnd
	if len(minutes) > 0 {
		start = minutes[0]
		end = minutes[len(minutes)-1] + step
	}

	type placed struct {
		item  Item
		start int
	}
	var ps []placed
	for _, it := range items {
		m, err := timezone.ParseClock(it.Time)
		if err != nil {
			continue
		}
		if it.DurationMinutes <= 0 {
			it.DurationMinutes = step
		}
		if m < start {
			start = m
		}
		if m+it.DurationMinutes > end {
			end = m + it.DurationMinutes
		}
		ps = append(ps, placed{item: it, start: m})
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].start < ps[j].start })

	v := View{
		StartMinute:     start,
		EndMinute:       end,
		Height:          float64(end-start) * opt.PixelsPerMinute,
		Markers:         make([]Marker, 0, len(minutes)),
		Blocks:          make([]Block, 0, len(ps)),
		pixelsPerMinute: opt.PixelsPerMinute,
	}

	for _, m := range minutes {
		v.Markers = append(v.Markers, Marker{
			Time:   timezone.FormatClock(m/60, m%60),
			Minute: m,
			Top:    float64(m-start) * opt.PixelsPerMinute,
		})
	}

	for i, p := range ps {
		h := float64(p.item.DurationMinutes) * opt.PixelsPerMinute
		if h < opt.MinBlockHeight {
			h = opt.MinBlockHeight
		}
		v.Blocks = append(v.Blocks, Block{
			Item:   p.item,
			Top:    float64(p.start-start) * opt.PixelsPerMinute,
			Height: h,
			ZIndex: i + 1,
			Color:  p.item.Status.Color(),
			Label:  p.item.Status.Label(),
		})
	}

	return v
}
