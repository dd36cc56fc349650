package httperr

import "errors"

// BusinessError is a validation failure detected locally, before any request is sent.
type BusinessError struct {
	Code  string
	Field string
}

func (e BusinessError) Error() string {
	return e.Code
}

// Message is the user-facing text for the code.
func (e BusinessError) Message() string {
	if m, ok := businessMessages[e.Code]; ok {
		return m
	}
	return e.Code
}

var businessMessages = map[string]string{
	"past_date":                 "date must not be in the past",
	"at_least_one_day_required": "at least one day required",
	"invalid_day_hours":         "start time must be before end time",
	"invalid_break":             "break must be inside working hours",
	"invalid_granularity":       "time granularity must be positive",
	"invalid_capacity":          "capacity must be at least 1",
	"name_required":             "name is required",
	"form_incomplete":           "required fields are missing",
	"form_closed":               "form is already closed",
	"invalid_date_or_time":      "invalid date or time",
	"invalid_status":            "invalid status",
	"invalid_weekday":           "weekday must be between 0 and 6",
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

// ErrField is a business error attached to a form field.
func ErrField(field, code string) error {
	return BusinessError{Code: code, Field: field}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
