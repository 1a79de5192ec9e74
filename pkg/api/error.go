package api

import (
	"errors"
	"fmt"
)

// Error is the failure result of an API call. Message is always set to
// something a UI can show to the user: the server's structured error field
// when present, the server's message otherwise, a generic fallback when
// the response carried no usable body.
type Error struct {
	// Status is the HTTP status code, or 0 for transport failures.
	Status int

	// Message is the human-readable failure description.
	Message string

	// Detail is the server's structured "error" field, when present.
	Detail string

	// cause is the underlying transport or decode error, if any.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return "api: " + e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.cause
}

// IsUnauthorized reports whether err is an API error with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 401
}
