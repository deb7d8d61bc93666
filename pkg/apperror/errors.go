// Package apperror defines the error taxonomy shared by the workflow services and
// the HTTP handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping and logging
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindConfiguration Kind = "configuration"
	KindDependency    Kind = "dependency"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Details any
	// Status overrides the kind's default HTTP status (upstream passthrough)
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches diagnostic details returned to the caller
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// MissingFields builds a validation error naming every missing or malformed field
func MissingFields(fields ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("missing or invalid fields: %v", fields),
		Details: map[string]any{"fields": fields},
	}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// Upstream is a dependency failure whose HTTP status is passed through to the caller
func Upstream(status int, message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Status: status, Err: err}
}

// As extracts an *Error from err
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// HTTPStatus maps err to the status code returned to the caller
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if appErr.Status != 0 {
		return appErr.Status
	}
	switch appErr.Kind {
	case KindValidation, KindConflict, KindConfiguration:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
