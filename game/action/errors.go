package action

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable failure class of a rejected action.
type Code string

const (
	CodeUnknownActor    Code = "UNKNOWN_ACTOR"
	CodeForbidden       Code = "FORBIDDEN"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeInvalidPosition Code = "INVALID_POSITION"
	CodeInvalidPayload  Code = "INVALID_PAYLOAD"
	CodeInternal        Code = "INTERNAL"
)

// Status maps the code to its HTTP status class.
func (c Code) Status() int {
	switch c {
	case CodeUnknownActor:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeInvalidPosition, CodeInvalidPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a rejected or failed action.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status for the error.
func (e *Error) Status() int { return e.Code.Status() }

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
