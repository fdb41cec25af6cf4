package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes reconciliation errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced document or index row does not
	// exist. Recovered locally by skipping the item within a batch.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeMalformedDelta indicates an identity-bearing payload element
	// without its identity. Fatal to the event.
	ErrCodeMalformedDelta ErrorCode = "MALFORMED_DELTA"

	// ErrCodeInconsistentState indicates state that could not be reconciled
	// by the fallback rules.
	ErrCodeInconsistentState ErrorCode = "INCONSISTENT_STATE"
)

// Error is a reconciliation error with structured context.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Kind names the entity type involved ("hearing", "offence", ...).
	Kind string

	// ID identifies the entity, when known.
	ID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (%s=%s)", e.Code, e.Message, e.Kind, e.ID)
	}
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// works for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == "" && t.ID == "" && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound       = &Error{Code: ErrCodeNotFound}
	ErrMalformedDelta = &Error{Code: ErrCodeMalformedDelta}
)

// NotFound creates a not-found error for a document or row.
func NotFound(kind, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: "not found", Kind: kind, ID: id}
}

// MissingIdentity creates a malformed-delta error for an element of the
// given kind that has no identity. parent locates the element.
func MissingIdentity(kind, parent string) *Error {
	msg := "identity field is required"
	if parent != "" {
		msg = fmt.Sprintf("identity field is required under %s", parent)
	}
	return &Error{Code: ErrCodeMalformedDelta, Message: msg, Kind: kind}
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeNotFound
	}
	return false
}

// IsMalformed returns true if the error is a malformed-delta error.
func IsMalformed(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeMalformedDelta
	}
	return false
}
