// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-rt.
//
// All fallible operations in the library report failure through an
// ordinary error value; none of the core paths panic or otherwise
// unwind. Sentinel errors support errors.Is, the structured *Error
// carries a code plus context for inspection.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRuntimeClosed   = errors.New("runtime is closed")
	ErrTerminated      = errors.New("thread already terminated")
	ErrNotOwned        = errors.New("operation not valid for this lifecycle type")
	ErrPoolClosed      = errors.New("pool is closed")
	ErrEndpointClosed  = errors.New("endpoint is closed")
	ErrTimeout         = errors.New("operation timeout")
	ErrNotSupported    = errors.New("operation not supported on this platform")
)

// ErrorCode classifies failure conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeState
	ErrCodeTransport
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code, cause and context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError creates a structured error around an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal when err
// carries no structured code. A nil err yields ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return ErrCodeTimeout
	case errors.Is(err, ErrNotSupported):
		return ErrCodeNotSupported
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrRuntimeClosed),
		errors.Is(err, ErrTerminated),
		errors.Is(err, ErrNotOwned),
		errors.Is(err, ErrPoolClosed),
		errors.Is(err, ErrEndpointClosed):
		return ErrCodeState
	}
	return ErrCodeInternal
}
