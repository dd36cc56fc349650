package agenda

import "time"

// ResourceCalendar is a bookable calendar: one staff member, room or service line.
// The clinic API calls it a "schedule".
type ResourceCalendar struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Color       string        `json:"color"`
	Granularity int           `json:"time_granularity"` // minutes
	Active      bool          `json:"active"`
	ValidFrom   string        `json:"valid_from,omitempty"`
	ValidUntil  string        `json:"valid_until,omitempty"`
	Days        []DayPattern  `json:"days"`
	Services    []ServiceLink `json:"services"`
}

type DayPattern struct {
	Weekday    Weekday `json:"weekday"`
	Active     bool    `json:"active"`
	Start      string  `json:"start_time"`
	End        string  `json:"end_time"`
	BreakStart string  `json:"break_start,omitempty"`
	BreakEnd   string  `json:"break_end,omitempty"`
	Capacity   *int    `json:"capacity,omitempty"`
}

type ServiceLink struct {
	ServiceID uint `json:"service_id"`
	Active    bool `json:"active"`
}

// ActiveServiceIDs returns the ids of the calendar's active service associations.
func (c ResourceCalendar) ActiveServiceIDs() []uint {
	out := make([]uint, 0, len(c.Services))
	for _, s := range c.Services {
		if s.Active {
			out = append(out, s.ServiceID)
		}
	}
	return out
}

type Appointment struct {
	ID          uint      `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
	PetID       uint      `json:"pet_id"`
	TutorID     uint      `json:"tutor_id"`
	ServiceID   uint      `json:"service_id"`
	CalendarID  uint      `json:"schedule_id"`
	StaffID     *uint     `json:"staff_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// TimelineSlot is one time point of a calendar on a date, as computed by the clinic API.
type TimelineSlot struct {
	Time            string `json:"time"`
	Available       bool   `json:"available"`
	AppointmentID   uint   `json:"appointment_id,omitempty"`
	PetName         string `json:"pet_name,omitempty"`
	TutorName       string `json:"tutor_name,omitempty"`
	ServiceName     string `json:"service_name,omitempty"`
	DurationMinutes int    `json:"duration,omitempty"`
	Status          Status `json:"status,omitempty"`
}

type AvailableSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type Pet struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Species Species `json:"species"`
	TutorID uint    `json:"tutor_id"`
	Active  bool    `json:"active"`
}

type Tutor struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Active bool   `json:"active"`
}

type Service struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration"`
	Price           float64 `json:"price"`
	Active          bool    `json:"active"`
}

func ActiveTutors(in []Tutor) []Tutor {
	out := make([]Tutor, 0, len(in))
	for _, t := range in {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

func ActivePets(in []Pet) []Pet {
	out := make([]Pet, 0, len(in))
	for _, p := range in {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func ActiveServices(in []Service) []Service {
	out := make([]Service, 0, len(in))
	for _, s := range in {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

func ActiveCalendars(in []ResourceCalendar) []ResourceCalendar {
	out := make([]ResourceCalendar, 0, len(in))
	for _, c := range in {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}
