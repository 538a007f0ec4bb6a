package serrors

import (
	"context"
	"errors"
	"fmt"
)

// Error is a coded error. Two errors are considered equal by errors.Is
// when their codes match, regardless of message or field.
type Error struct {
	Code    string
	Message string
	Field   string
}

func NewError(code, message, field string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy carrying a more specific message under the
// same code, so errors.Is matching by code keeps working.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Code: e.Code, Message: message, Field: e.Field}
}

func (e *Error) WithField(field string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Field: field}
}

// Code extracts the code of err, or "" when err carries none.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Errors shared across modules. Wrong-tenant lookups surface as
// ErrNotFound as well: tenants must not be able to probe each other's ids.
var (
	ErrNotFound               = NewError("NOT_FOUND", "record not found", "")
	ErrConcurrentModification = NewError("CONCURRENT_MODIFICATION", "record was modified concurrently", "")
	ErrTimeout                = NewError("TIMEOUT", "operation timed out", "")
)

// MapContext converts context cancellation into the Timeout error so
// callers see one kind for an aborted store call. Other errors pass through.
func MapContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return err
}
