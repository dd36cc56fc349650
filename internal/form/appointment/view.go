package appointment

import (
	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
)

// View is the form as the UI renders it.
type View struct {
	Mode          Mode                   `json:"mode"`
	AppointmentID uint                   `json:"appointment_id,omitempty"`
	Values        Values                 `json:"values"`
	Calendars     []Option               `json:"calendars"`
	Tutors        []Option               `json:"tutors"`
	Statuses      []Option               `json:"statuses"`
	Service       FieldState             `json:"service"`
	Pet           FieldState             `json:"pet"`
	Time          FieldState             `json:"time"`
	Errors        map[string]string      `json:"errors"`
	Submittable   bool                   `json:"submittable"`
	Submitting    bool                   `json:"submitting"`
	Closed        bool                   `json:"closed"`
	Result        *agenda.Appointment    `json:"result,omitempty"`
	Notifications []httperr.Notification `json:"notifications,omitempty"`
}

// Snapshot returns the current view without consuming notifications.
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
	errs := messages(c.errs)
	for field, msg := range c.serverErrs {
		errs[field] = msg
	}

	v := View{
		Mode:          c.mode,
		AppointmentID: c.appointmentID,
		Values:        c.values,
		Calendars:     make([]Option, 0, len(c.calendars)),
		Tutors:        make([]Option, 0, len(c.tutors)),
		Statuses:      make([]Option, 0, len(agenda.Statuses())),
		Service:       c.derived.Service,
		Pet:           c.derived.Pet,
		Time:          c.derived.Time,
		Errors:        errs,
		Submittable:   Submittable(c.derived, c.errs) == nil,
		Submitting:    c.submitting,
		Closed:        c.closed,
		Result:        c.result,
		Notifications: append([]httperr.Notification(nil), c.notifications...),
	}

	for _, cal := range c.calendars {
		v.Calendars = append(v.Calendars, Option{Value: idString(cal.ID), Label: cal.Name})
	}
	for _, t := range c.tutors {
		v.Tutors = append(v.Tutors, Option{Value: idString(t.ID), Label: t.Name})
	}
	for _, st := range agenda.Statuses() {
		v.Statuses = append(v.Statuses, Option{Value: string(st), Label: st.Label()})
	}

	return v
}
