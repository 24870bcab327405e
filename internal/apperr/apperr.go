// Package apperr defines the error taxonomy shared by the domain services
// and their REST and websocket front ends.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

// Error kinds. The zero value is Internal so unclassified errors are never
// reported as client mistakes.
const (
	Internal Kind = iota
	Validation
	NotFound
	Forbidden
	Unauthenticated
	Conflict
)

// CodeAppointmentNotConfirmed marks a chat-gate rejection.
const CodeAppointmentNotConfirmed = "APPOINTMENT_NOT_CONFIRMED"

// SanitizedMessage replaces the message of every Internal error that leaves
// the process.
const SanitizedMessage = "Server error"

var kindNames = map[Kind]string{
	Internal:        "internal",
	Validation:      "validation",
	NotFound:        "not_found",
	Forbidden:       "forbidden",
	Unauthenticated: "unauthenticated",
	Conflict:        "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Unauthenticated:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified, user-presentable error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
	// Fields carries extra response attributes, e.g. appointmentStatus.
	Fields map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithField returns e with an extra response attribute set.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// WithCode sets the machine-readable code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf reports malformed input.
func Validationf(format string, args ...any) *Error { return newf(Validation, format, args...) }

// NotFoundf reports a missing entity.
func NotFoundf(format string, args ...any) *Error { return newf(NotFound, format, args...) }

// Forbiddenf reports an authenticated caller acting outside their rights.
func Forbiddenf(format string, args ...any) *Error { return newf(Forbidden, format, args...) }

// Unauthenticatedf reports a missing or invalid credential.
func Unauthenticatedf(format string, args ...any) *Error {
	return newf(Unauthenticated, format, args...)
}

// Conflictf reports a uniqueness clash.
func Conflictf(format string, args ...any) *Error { return newf(Conflict, format, args...) }

// Wrap classifies err as Internal with a message for logs.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Internal, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or Internal when err is unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message safe to show a client.
func PublicMessage(err error) string {
	e, ok := As(err)
	if !ok || e.Kind == Internal {
		return SanitizedMessage
	}
	return e.Message
}
