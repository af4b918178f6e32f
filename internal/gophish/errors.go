package gophish

import (
	"errors"
	"fmt"
	"net/http"
)

// Gophish API errors. APIError unwraps to one of these when the status code
// identifies it.
var (
	// ErrConflict is returned when an entity with the same name already exists.
	ErrConflict = errors.New("name already in use")

	// ErrAuthFailed is returned when the API key is rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the Gophish API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap maps the status code onto the package sentinels.
//
// Gophish answers a create whose name collides with an existing entity with
// 409 Conflict and nothing else, so 409 is the only duplicate signal.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// IsConflict reports whether err signals a duplicate natural key.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
