package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can tell validation problems
// apart from infrastructure problems.
type ErrorKind string

const (
	KindInvalidInput   ErrorKind = "invalid_input"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindStorageFailure ErrorKind = "storage_failure"
	KindUnauthorized   ErrorKind = "unauthorized"
)

// Error is the structured error returned by board operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func NotFound(what, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", what, id)}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// StorageFailure wraps an infrastructure error raised during op.
func StorageFailure(op string, err error) error {
	return &Error{Kind: KindStorageFailure, Message: op + " failed", Err: err}
}

// KindOf returns the kind of err. Errors that are not *Error are treated
// as storage failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorageFailure
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
