package screen

import (
	"sort"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/timeline"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

type CalendarOption struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Color    string `json:"color,omitempty"`
	Selected bool   `json:"selected"`
}

// Column is one selected calendar's timeline.
type Column struct {
	CalendarID uint          `json:"calendar_id"`
	Name       string        `json:"name"`
	Color      string        `json:"color,omitempty"`
	Failed     bool          `json:"failed"`
	Timeline   timeline.View `json:"timeline"`
}

// Entry is an appointment in the merged list of all selected calendars.
type Entry struct {
	timeline.Item
	CalendarID   uint   `json:"calendar_id"`
	CalendarName string `json:"calendar_name"`
	StatusLabel  string `json:"status_label"`
}

type View struct {
	Date          string                 `json:"date"`
	Calendars     []CalendarOption       `json:"calendars"`
	Columns       []Column               `json:"columns"`
	Appointments  []Entry                `json:"appointments"`
	Notifications []httperr.Notification `json:"notifications,omitempty"`
}

// View builds the page from the last refresh and clears pending notifications.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Date:          timezone.FormatDate(c.date),
		Calendars:     make([]CalendarOption, 0, len(c.calendars)),
		Columns:       make([]Column, 0, len(c.selected)),
		Appointments:  []Entry{},
		Notifications: c.notices,
	}
	c.notices = nil

	byID := make(map[uint]agenda.ResourceCalendar, len(c.calendars))
	selected := make(map[uint]bool, len(c.selected))
	for _, id := range c.selected {
		selected[id] = true
	}
	for _, cal := range c.calendars {
		byID[cal.ID] = cal
		v.Calendars = append(v.Calendars, CalendarOption{
			ID:       cal.ID,
			Name:     cal.Name,
			Category: cal.Category,
			Color:    cal.Color,
			Selected: selected[cal.ID],
		})
	}

	type sortable struct {
		Entry
		minute int
	}
	var merged []sortable

	for _, id := range c.selected {
		cal := byID[id]
		slots := c.timelines[id]

		v.Columns = append(v.Columns, Column{
			CalendarID: id,
			Name:       cal.Name,
			Color:      cal.Color,
			Failed:     c.failed[id],
			Timeline:   timeline.FromSlots(slots, c.optionsFor(cal)),
		})

		for _, it := range timeline.ItemsFromSlots(slots) {
			m, err := timezone.ParseClock(it.Time)
			if err != nil {
				continue
			}
			merged = append(merged, sortable{
				Entry: Entry{
					Item:         it,
					CalendarID:   id,
					CalendarName: cal.Name,
					StatusLabel:  it.Status.Label(),
				},
				minute: m,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].minute != merged[j].minute {
			return merged[i].minute < merged[j].minute
		}
		return merged[i].CalendarID < merged[j].CalendarID
	})
	for _, e := range merged {
		v.Appointments = append(v.Appointments, e.Entry)
	}
	return v
}

// Selected returns the shown calendar ids in display order.
func (c *Controller) Selected() []uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint(nil), c.selected...)
}

// Timeline returns the laid out timeline of one selected calendar.
func (c *Controller) Timeline(calendarID uint) (timeline.View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, ok := c.timelines[calendarID]
	if !ok {
		return timeline.View{}, false
	}
	var cal agenda.ResourceCalendar
	for _, cc := range c.calendars {
		if cc.ID == calendarID {
			cal = cc
		}
	}
	return timeline.FromSlots(slots, c.optionsFor(cal)), true
}

// optionsFor falls back to the calendar's granularity as marker step.
func (c *Controller) optionsFor(cal agenda.ResourceCalendar) timeline.Options {
	opt := c.cfg.Timeline
	if opt.Step <= 0 && cal.Granularity > 0 {
		opt.Step = cal.Granularity
	}
	return opt
}
