package httperr

import "errors"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient toast shown to the user.
type Notification struct {
	Level   Level             `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func Success(title, message string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Message: message}
}

func Warning(title, message string) Notification {
	return Notification{Level: LevelWarning, Title: title, Message: message}
}

// Notify turns an error into the toast the user sees.
func Notify(err error) Notification {
	n := Notification{Level: LevelError, Fields: FieldErrors(err)}

	switch KindOf(err) {
	case KindNotFound:
		n.Title = "Not found"
		n.Message = "The record no longer exists."
	case KindValidation:
		n.Title = "Check the form"
		n.Message = validationMessage(err)
	case KindForbidden:
		n.Title = "Not allowed"
		n.Message = "You do not have permission for this action."
	case KindUnauthorized:
		n.Title = "Session expired"
		n.Message = "Sign in again to continue."
	case KindNetwork:
		n.Title = "Connection problem"
		n.Message = "The clinic server could not be reached."
	case KindCanceled:
		n.Level = LevelInfo
		n.Title = "Canceled"
		n.Message = "The request was replaced by a newer one."
	default:
		n.Title = "Unexpected error"
		n.Message = "Something went wrong. Try again."
	}

	return n
}

func validationMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var be BusinessError
	if errors.As(err, &be) {
		return be.Message()
	}
	return "Some fields are invalid."
}
