package calendar

import (
	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
)

type DayView struct {
	agenda.DayPattern
	Label string `json:"label"`
	Error string `json:"error,omitempty"`
}

type ServiceOption struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
	Selected bool   `json:"selected"`
}

type View struct {
	CalendarID    uint                     `json:"calendar_id,omitempty"`
	Header        Header                   `json:"header"`
	Days          []DayView                `json:"days"`
	Services      []ServiceOption          `json:"services"`
	Errors        map[string]string        `json:"errors"`
	Submittable   bool                     `json:"submittable"`
	Submitting    bool                     `json:"submitting"`
	Closed        bool                     `json:"closed"`
	Result        *agenda.ResourceCalendar `json:"result,omitempty"`
	Notifications []httperr.Notification   `json:"notifications,omitempty"`
}

func (c *Coordinator) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// TakeView returns the current view and clears pending notifications.
func (c *Coordinator) TakeView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.viewLocked()
	c.notifications = nil
	return v
}

func (c *Coordinator) viewLocked() View {
	errs := make(map[string]string, len(c.errs)+len(c.serverErrs))
	for field, code := range c.errs {
		errs[field] = httperr.BusinessError{Code: code, Field: field}.Message()
	}
	for field, msg := range c.serverErrs {
		errs[field] = msg
	}

	v := View{
		CalendarID:    c.calendarID,
		Header:        c.header,
		Days:          make([]DayView, 0, len(c.days)),
		Services:      make([]ServiceOption, 0, len(c.services)),
		Errors:        errs,
		Submittable:   len(c.errs) == 0,
		Submitting:    c.submitting,
		Closed:        c.closed,
		Result:        c.result,
		Notifications: append([]httperr.Notification(nil), c.notifications...),
	}
	for _, d := range c.days {
		v.Days = append(v.Days, DayView{DayPattern: d, Label: d.Weekday.Label(), Error: errs[dayField(d.Weekday)]})
	}
	for _, s := range c.services {
		v.Services = append(v.Services, ServiceOption{
			ID:       s.ID,
			Name:     s.Name,
			Duration: s.DurationMinutes,
			Selected: c.selected[s.ID],
		})
	}
	return v
}
