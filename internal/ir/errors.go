package ir

import (
	"errors"
	"fmt"
)

// Error is a local, recoverable failure reported to the caller.
//
// Error kinds:
//   - Invalid input: empty title, negative counts, unknown enum value
//   - Not found: lookup of an unknown pattern name or category
//   - Duplicate name: re-registering an existing pattern name
//
// A Blocked decision is never an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed (e.g. "register", "submit").
	Op string

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates malformed caller input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeNotFound indicates an unknown pattern name or category.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDuplicateName indicates a pattern name is already registered.
	ErrCodeDuplicateName ErrorCode = "DUPLICATE_NAME"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidInput creates an INVALID_INPUT error.
func NewInvalidInput(op, message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Op: op, Message: message}
}

// NewNotFound creates a NOT_FOUND error for the given kind and key.
func NewNotFound(op, kind, key string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Op:      op,
		Message: fmt.Sprintf("%s %q not found", kind, key),
		Details: map[string]string{"kind": kind, "key": key},
	}
}

// NewDuplicateName creates a DUPLICATE_NAME error.
func NewDuplicateName(op, name string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateName,
		Op:      op,
		Message: fmt.Sprintf("pattern %q already registered", name),
		Details: map[string]string{"name": name},
	}
}

// CodeOf returns the error code of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidInput returns true if err is an INVALID_INPUT error.
func IsInvalidInput(err error) bool {
	return CodeOf(err) == ErrCodeInvalidInput
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsDuplicateName returns true if err is a DUPLICATE_NAME error.
func IsDuplicateName(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateName
}
