package httperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failure for presentation. None of them is fatal.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindNotFound
	KindValidation
	KindForbidden
	KindUnauthorized
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx answer from the clinic API.
type APIError struct {
	Status  int               `json:"status"`
	Code    string            `json:"error_code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("clinic api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("clinic api %d: %s", e.Status, e.Message)
}

func (e *APIError) Kind() Kind {
	switch e.Status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusUnauthorized:
		return KindUnauthorized
	}
	if e.Status >= 500 {
		return KindNetwork
	}
	return KindUnknown
}

// KindOf classifies any error returned by this module.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}

	var be BusinessError
	if errors.As(err, &be) {
		return KindValidation
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}

	return KindUnknown
}

// FieldErrors returns the per-field messages carried by a validation failure.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		return apiErr.Fields
	}
	var be BusinessError
	if errors.As(err, &be) && be.Field != "" {
		return map[string]string{be.Field: be.Message()}
	}
	return nil
}
