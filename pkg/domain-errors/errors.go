// Package domainerrors carries coded errors across module boundaries.
//
// Domain and service layers return *Error values so that transports (the line
// protocol, the admin HTTP surface) can render failures without inspecting
// message text. Use New for fresh failures and Wrap when an underlying cause
// should remain reachable through errors.Is / errors.As.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation covers empty or malformed fields and bad coordinates.
	CodeValidation Code = "validation_error"
	// CodeNotFound means the referenced entity id is unknown.
	CodeNotFound Code = "not_found"
	// CodeDeleted means the entity exists but has been deleted.
	CodeDeleted Code = "deleted"
	// CodeConflict covers duplicate identifiers.
	CodeConflict Code = "conflict"
	// CodeAttachmentConflict means an item cannot be deleted while users are attached.
	CodeAttachmentConflict Code = "attachment_conflict"
	// CodeTypeMismatch means a value cannot be used as a subscriber.
	CodeTypeMismatch Code = "type_mismatch"
	// CodeUnknownField means an update named a field the entity does not expose.
	CodeUnknownField Code = "unknown_field"
	// CodeInvalidState means the operation does not apply to the entity's current state.
	CodeInvalidState Code = "invalid_state"
	// CodeInvariantViolation marks broken internal invariants.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks operations aborted by a deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal covers everything unexpected.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code so callers can compare against a template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether err carries code. Shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
