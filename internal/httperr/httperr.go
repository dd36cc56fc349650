package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code         string        `json:"error_code"`
	Message      string        `json:"message"`
	Notification *Notification `json:"notification,omitempty"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

// StatusOf maps err to the HTTP status and error code the API answers with.
func StatusOf(err error) (int, string) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch KindOf(err) {
	case KindNotFound:
		status, code = http.StatusNotFound, "not_found"
	case KindValidation:
		status, code = http.StatusBadRequest, "validation_failed"
	case KindForbidden:
		status, code = http.StatusForbidden, "forbidden"
	case KindUnauthorized:
		status, code = http.StatusUnauthorized, "unauthorized"
	case KindNetwork:
		status, code = http.StatusBadGateway, "backend_unavailable"
	case KindCanceled:
		status, code = http.StatusConflict, "superseded"
	}

	var be BusinessError
	if errors.As(err, &be) {
		code = be.Code
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		code = apiErr.Code
	}
	return status, code
}

// FromError writes err with the status that matches its kind and the toast to show.
func FromError(c *gin.Context, err error) {
	n := Notify(err)
	status, code := StatusOf(err)

	c.JSON(status, HTTPError{
		Code:         code,
		Message:      n.Message,
		Notification: &n,
	})
}
