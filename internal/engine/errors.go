package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a failure to process one event.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EventID, Kind and Key identify the event.
	EventID string
	Kind    string
	Key     string

	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeLockUnavailable means the per-key lock was not acquired.
	ErrCodeLockUnavailable RuntimeErrorCode = "LOCK_UNAVAILABLE"

	// ErrCodeDecodeFailed means the envelope was malformed.
	ErrCodeDecodeFailed RuntimeErrorCode = "DECODE_FAILED"

	// ErrCodeApplyFailed means reconciliation failed, usually a read error.
	ErrCodeApplyFailed RuntimeErrorCode = "APPLY_FAILED"

	// ErrCodeCommitFailed means the outcome could not be persisted.
	ErrCodeCommitFailed RuntimeErrorCode = "COMMIT_FAILED"
)

func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.EventID != "" {
		return fmt.Sprintf("%s: %s (event=%s, kind=%s)", e.Code, msg, e.EventID, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func newRuntimeError(code RuntimeErrorCode, ev Event, msg string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: msg,
		EventID: ev.Envelope.ID,
		Kind:    string(ev.Envelope.Kind),
		Key:     ev.Envelope.Key,
		Err:     err,
	}
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsDecodeError reports whether err is a malformed-event failure.
func IsDecodeError(err error) bool {
	return hasCode(err, ErrCodeDecodeFailed)
}

// IsLockError reports whether err is a lock acquisition failure.
func IsLockError(err error) bool {
	return hasCode(err, ErrCodeLockUnavailable)
}

// IsCommitError reports whether err is a persistence failure.
func IsCommitError(err error) bool {
	return hasCode(err, ErrCodeCommitFailed)
}
