package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched against ServiceError with errors.Is.
var (
	// ErrUnauthorized indicates the backend rejected the bearer token (401).
	// The stored token has already been cleared when this is returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the addressed ticket or document does not exist (404).
	ErrNotFound = errors.New("not found")
)

// TransportError means the request never completed: the backend was
// unreachable, the connection dropped, or the timeout elapsed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a completed request with a non-2xx status.
type ServiceError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: server returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Detail)
}

// Is maps status codes onto the package sentinels.
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// maxDetailLen bounds how much of a non-JSON error body is kept.
const maxDetailLen = 200

func newServiceError(op string, status int, body []byte) *ServiceError {
	return &ServiceError{Op: op, StatusCode: status, Detail: errorDetail(body)}
}

// errorDetail extracts a FastAPI-style {"detail": "..."} message, falling
// back to the raw body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}

	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailLen {
		s = s[:maxDetailLen-3] + "..."
	}
	return s
}

// IsTransient reports whether err is a remote failure the user may retry:
// a transport failure or any service error. Chat treats both the same.
func IsTransient(err error) bool {
	var te *TransportError
	var se *ServiceError
	return errors.As(err, &te) || errors.As(err, &se)
}
