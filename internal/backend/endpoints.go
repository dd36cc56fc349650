package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

// list endpoints answer either a bare array or {"data": [...]}
func getList[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}

	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return out, nil
	}

	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if wrapped.Data == nil {
		return []T{}, nil
	}
	return wrapped.Data, nil
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// ListCalendars lists resource calendars, optionally only active ones.
func (c *Client) ListCalendars(ctx context.Context, activeOnly bool) ([]agenda.ResourceCalendar, error) {
	path := "/schedules"
	if activeOnly {
		path += "?active=true"
	}
	out, err := getList[agenda.ResourceCalendar](ctx, c, "list_calendars", path)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return out, nil
}

// GetCalendar returns a calendar with its weekly pattern and service associations.
func (c *Client) GetCalendar(ctx context.Context, calendarID uint) (*agenda.ResourceCalendar, error) {
	var out agenda.ResourceCalendar
	if err := c.doJSON(ctx, "get_calendar", http.MethodGet, "/schedules/"+id(calendarID), nil, &out); err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateCalendar(ctx context.Context, req CalendarRequest) (*agenda.ResourceCalendar, error) {
	var out agenda.ResourceCalendar
	if err := c.doJSON(ctx, "create_calendar", http.MethodPost, "/schedules", req, &out); err != nil {
		return nil, fmt.Errorf("create calendar: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateCalendar(ctx context.Context, calendarID uint, req CalendarUpdateRequest) (*agenda.ResourceCalendar, error) {
	var out agenda.ResourceCalendar
	if err := c.doJSON(ctx, "update_calendar", http.MethodPut, "/schedules/"+id(calendarID), req, &out); err != nil {
		return nil, fmt.Errorf("update calendar: %w", err)
	}
	return &out, nil
}

// GetTimeline returns the ordered slot list of a calendar on date.
func (c *Client) GetTimeline(ctx context.Context, calendarID uint, date time.Time) ([]agenda.TimelineSlot, error) {
	q := url.Values{}
	q.Set("date", timezone.FormatDate(date))

	path := fmt.Sprintf("/schedules/%s/timeline?%s", id(calendarID), q.Encode())
	out, err := getList[agenda.TimelineSlot](ctx, c, "get_timeline", path)
	if err != nil {
		return nil, fmt.Errorf("get timeline: %w", err)
	}
	return out, nil
}

// GetAvailableSlots returns bookable times; serviceID 0 means any service.
func (c *Client) GetAvailableSlots(ctx context.Context, calendarID uint, date time.Time, serviceID uint) ([]agenda.AvailableSlot, error) {
	q := url.Values{}
	q.Set("date", timezone.FormatDate(date))
	if serviceID != 0 {
		q.Set("service_id", id(serviceID))
	}

	path := fmt.Sprintf("/schedules/%s/available-slots?%s", id(calendarID), q.Encode())
	out, err := getList[agenda.AvailableSlot](ctx, c, "get_available_slots", path)
	if err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}
	return out, nil
}

func (c *Client) ListTutors(ctx context.Context, activeOnly bool) ([]agenda.Tutor, error) {
	path := "/tutors"
	if activeOnly {
		path += "?active=true"
	}
	out, err := getList[agenda.Tutor](ctx, c, "list_tutors", path)
	if err != nil {
		return nil, fmt.Errorf("list tutors: %w", err)
	}
	return out, nil
}

func (c *Client) ListTutorPets(ctx context.Context, tutorID uint) ([]agenda.Pet, error) {
	out, err := getList[agenda.Pet](ctx, c, "list_tutor_pets", "/tutors/"+id(tutorID)+"/pets")
	if err != nil {
		return nil, fmt.Errorf("list tutor pets: %w", err)
	}
	return out, nil
}

// ListServices lists the clinic's service catalog.
func (c *Client) ListServices(ctx context.Context, activeOnly bool) ([]agenda.Service, error) {
	path := "/services"
	if activeOnly {
		path += "?active=true"
	}
	out, err := getList[agenda.Service](ctx, c, "list_services", path)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return out, nil
}

// ListCalendarServices lists the services bookable on a calendar.
func (c *Client) ListCalendarServices(ctx context.Context, calendarID uint) ([]agenda.Service, error) {
	out, err := getList[agenda.Service](ctx, c, "list_calendar_services", "/schedules/"+id(calendarID)+"/services")
	if err != nil {
		return nil, fmt.Errorf("list calendar services: %w", err)
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*agenda.Appointment, error) {
	var out agenda.Appointment
	if err := c.doJSON(ctx, "create_appointment", http.MethodPost, "/appointments", req, &out); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, appointmentID uint, req AppointmentRequest) (*agenda.Appointment, error) {
	var out agenda.Appointment
	if err := c.doJSON(ctx, "update_appointment", http.MethodPut, "/appointments/"+id(appointmentID), req, &out); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return &out, nil
}

func (c *Client) GetAppointment(ctx context.Context, appointmentID uint) (*agenda.Appointment, error) {
	var out agenda.Appointment
	if err := c.doJSON(ctx, "get_appointment", http.MethodGet, "/appointments/"+id(appointmentID), nil, &out); err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &out, nil
}
