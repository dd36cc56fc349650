package backend

import (
	"time"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
)

// CalendarRequest is the create shape: full weekly pattern plus the service id set.
type CalendarRequest struct {
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Color       string              `json:"color"`
	Granularity int                 `json:"time_granularity"`
	Active      bool                `json:"active"`
	ValidFrom   string              `json:"valid_from,omitempty"`
	ValidUntil  string              `json:"valid_until,omitempty"`
	Days        []agenda.DayPattern `json:"days"`
	ServiceIDs  []uint              `json:"service_ids"`
}

// CalendarUpdateRequest is the update shape: full weekly pattern plus a
// patch over the service associations.
type CalendarUpdateRequest struct {
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	Color       string               `json:"color"`
	Granularity int                  `json:"time_granularity"`
	Active      bool                 `json:"active"`
	ValidFrom   string               `json:"valid_from,omitempty"`
	ValidUntil  string               `json:"valid_until,omitempty"`
	Days        []agenda.DayPattern  `json:"days"`
	Services    []agenda.ServiceLink `json:"services"`
}

type AppointmentRequest struct {
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      agenda.Status `json:"status"`
	PetID       uint          `json:"pet_id"`
	TutorID     uint          `json:"tutor_id"`
	ServiceID   uint          `json:"service_id"`
	CalendarID  uint          `json:"schedule_id"`
	StaffID     *uint         `json:"staff_id,omitempty"`
	Notes       string        `json:"notes,omitempty"`
}

// RequestFromAppointment is the payload that would recreate ap as loaded.
func RequestFromAppointment(ap agenda.Appointment) AppointmentRequest {
	return AppointmentRequest{
		ScheduledAt: ap.ScheduledAt,
		Status:      ap.Status,
		PetID:       ap.PetID,
		TutorID:     ap.TutorID,
		ServiceID:   ap.ServiceID,
		CalendarID:  ap.CalendarID,
		StaffID:     ap.StaffID,
		Notes:       ap.Notes,
	}
}
