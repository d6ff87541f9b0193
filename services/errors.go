package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure. Every mutating operation either fully
// succeeds or fails with one Kind and zero writes applied.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindConflict         Kind = "conflict"
	KindInvalidState     Kind = "invalid_state"
	KindValidationFailed Kind = "validation_failed"
)

// Error carries the failure kind plus the identifiers the caller needs to
// build a message without re-querying state.
type Error struct {
	Kind     Kind
	Message  string
	Resource string // club, member, event, rsvp, user
	ID       string // offending identifier, if known
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (%s %s)", e.Kind, e.Message, e.Resource, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, resource, id, message string) *Error {
	return &Error{Kind: kind, Message: message, Resource: resource, ID: id}
}

// KindOf extracts the Kind from err, or "" if err carries no Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a service error to the status code controllers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindValidationFailed:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
