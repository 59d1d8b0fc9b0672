package gateway

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks transport failures: the backend was unreachable or
// timed out, the response could not be read, or a 5xx came back without an
// envelope.
var ErrUnavailable = errors.New("gateway: backend unavailable")

// APIError is an application failure reported by the backend. Message is
// the backend-supplied text and may be empty when the body was not a valid
// envelope.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("gateway: %s %s: %s", e.Method, e.Path, e.Message)
}
