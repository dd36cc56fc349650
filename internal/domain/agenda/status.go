package agenda

import "github.com/BruksfildServices01/vet-agenda/internal/httperr"

// ===============================
// Appointment Status
// ===============================

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusNoShow     Status = "no_show"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{
		StatusScheduled,
		StatusConfirmed,
		StatusInProgress,
		StatusCompleted,
		StatusNoShow,
		StatusCancelled,
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", httperr.ErrField("status", "invalid_status")
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether the appointment no longer occupies its slot as pending work.
func (s Status) IsFinal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return false
	}
	return false
}

func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Agendado"
	case StatusConfirmed:
		return "Confirmado"
	case StatusInProgress:
		return "Em atendimento"
	case StatusCompleted:
		return "Concluído"
	case StatusNoShow:
		return "Não compareceu"
	case StatusCancelled:
		return "Cancelado"
	}
	return string(s)
}

func (s Status) Color() string {
	switch s {
	case StatusScheduled:
		return "#3b82f6"
	case StatusConfirmed:
		return "#10b981"
	case StatusInProgress:
		return "#f59e0b"
	case StatusCompleted:
		return "#6b7280"
	case StatusNoShow:
		return "#ef4444"
	case StatusCancelled:
		return "#9ca3af"
	}
	return "#9ca3af"
}

func (s Status) Icon() string {
	switch s {
	case StatusScheduled:
		return "calendar"
	case StatusConfirmed:
		return "check-circle"
	case StatusInProgress:
		return "clock"
	case StatusCompleted:
		return "check-double"
	case StatusNoShow:
		return "user-x"
	case StatusCancelled:
		return "x-circle"
	}
	return "help-circle"
}
