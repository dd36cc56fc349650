package screen

import (
	"context"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/form/appointment"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/timeline"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

// CreateCommand opens a creation form pre-filled from an empty slot.
type CreateCommand struct {
	CalendarID uint   `json:"calendar_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

// EditCommand opens an edit form for a freshly fetched appointment.
type EditCommand struct {
	Appointment agenda.Appointment `json:"appointment"`
}

// Command is the outcome of a click on a timeline; at most one field is set.
type Command struct {
	Create *CreateCommand `json:"create,omitempty"`
	Edit   *EditCommand   `json:"edit,omitempty"`
}

// ClickSlot is a click on an empty slot of calendarID at hour:minute on the
// selected date.
func (c *Controller) ClickSlot(calendarID uint, hour, minute int) CreateCommand {
	return CreateCommand{
		CalendarID: calendarID,
		Date:       c.Date(),
		Time:       timezone.FormatClock(hour, minute),
	}
}

// ClickAppointment fetches the appointment again so the form edits current data.
func (c *Controller) ClickAppointment(ctx context.Context, appointmentID uint) (EditCommand, error) {
	ap, err := c.api.GetAppointment(ctx, appointmentID)
	if err != nil {
		c.logger.Warn("appointment fetch failed", "appointment_id", appointmentID, "kind", httperr.KindOf(err).String(), "error", err)
		c.notify(httperr.Notify(err))
		return EditCommand{}, err
	}
	return EditCommand{Appointment: *ap}, nil
}

// ClickAt resolves a click at vertical offset y of a calendar column. A click
// on an appointment block never also opens a creation form.
func (c *Controller) ClickAt(ctx context.Context, calendarID uint, y float64) (Command, error) {
	view, ok := c.Timeline(calendarID)
	if !ok {
		return Command{}, nil
	}

	hit := timeline.HitTest(view, y)
	switch hit.Kind {
	case timeline.HitBlock:
		cmd, err := c.ClickAppointment(ctx, hit.AppointmentID)
		if err != nil {
			return Command{}, err
		}
		return Command{Edit: &cmd}, nil
	case timeline.HitEmpty:
		m, err := timezone.ParseClock(hit.Time)
		if err != nil {
			return Command{}, nil
		}
		cmd := c.ClickSlot(calendarID, m/60, m%60)
		return Command{Create: &cmd}, nil
	}
	return Command{}, nil
}

// OpenCreateForm builds the appointment form a CreateCommand asks for.
func (c *Controller) OpenCreateForm(ctx context.Context, cmd CreateCommand) *appointment.Coordinator {
	f := appointment.NewCreate(c.api, c.FormConfig(), appointment.Prefill{
		CalendarID: cmd.CalendarID,
		Date:       cmd.Date,
		Time:       cmd.Time,
	})
	f.Open(ctx)
	return f
}

func (c *Controller) OpenEditForm(ctx context.Context, cmd EditCommand) *appointment.Coordinator {
	f := appointment.NewEdit(c.api, c.FormConfig(), cmd.Appointment)
	f.Open(ctx)
	return f
}
