package httpx

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON envelope of every error response. Code is stable and
// machine-readable; Details carries the kind-specific payload.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteError sends status with an ErrorBody.
func WriteError(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorBody{Code: code, Message: message, Details: details})
}

// ErrorHandler renders errors that reached echo without being written by a
// handler (routing misses, middleware rejections, bind failures) in the same
// envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}

	var body ErrorBody
	var verr *ValidationError
	if errors.As(err, &verr) {
		status = http.StatusBadRequest
		body = ErrorBody{Code: "invalid_input", Message: verr.Error(), Details: verr.Fields}
	} else {
		body = ErrorBody{Code: codeForStatus(status), Message: message}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		if status >= 500 {
			return "internal"
		}
		return "error"
	}
}
