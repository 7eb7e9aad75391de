// Package torcerr defines the stable, machine-readable error taxonomy
// shared by the engine, store, and dispatch layer.
package torcerr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error classification.
type Code string

const (
	NotFound         Code = "NotFound"
	Conflict         Code = "Conflict"
	InvalidDag       Code = "InvalidDag"
	InvalidState     Code = "InvalidState"
	RetryableConflict Code = "RetryableConflict"
	AuthRequired     Code = "AuthRequired"
	AuthFailed       Code = "AuthFailed"
	Internal         Code = "Internal"
)

// Error is the typed error every core component returns.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(format string, args ...any) *Error     { return new(NotFound, format, args...) }
func NewConflict(format string, args ...any) *Error     { return new(Conflict, format, args...) }
func NewInvalidDag(format string, args ...any) *Error   { return new(InvalidDag, format, args...) }
func NewInvalidState(format string, args ...any) *Error { return new(InvalidState, format, args...) }
func NewAuthRequired(format string, args ...any) *Error { return new(AuthRequired, format, args...) }
func NewAuthFailed(format string, args ...any) *Error   { return new(AuthFailed, format, args...) }

func NewRetryableConflict(cause error) *Error {
	return &Error{Code: RetryableConflict, Message: "transaction serialization conflict exhausted retries", Cause: cause}
}

func NewInternal(cause error, format string, args ...any) *Error {
	return &Error{Code: Internal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Wrap attaches code to an existing error without discarding it.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the Code from err, defaulting to Internal for untyped errors.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return Internal
}
