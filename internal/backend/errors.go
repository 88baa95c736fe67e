package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common backend responses. They are wrapped by *APIError
// so callers can use errors.Is without inspecting status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is returned for any non-2xx backend response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the backend's {"error": "..."} text, if any.
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap maps well-known status codes onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return nil
	}
}

// DecodeError is returned when a response body does not match the expected shape.
type DecodeError struct {
	// Field is the JSON field at fault, empty for whole-body failures.
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("decode %s: %s: %v", e.Field, e.Reason, e.Err)
	case e.Field != "":
		return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("decode response: %s: %v", e.Reason, e.Err)
	default:
		return "decode response: " + e.Reason
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Missing reports a required field absent from a response.
func Missing(field string) *DecodeError {
	return &DecodeError{Field: field, Reason: "required field missing"}
}

// Invalid reports a field present with an unusable value.
func Invalid(field, reason string) *DecodeError {
	return &DecodeError{Field: field, Reason: reason}
}

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
