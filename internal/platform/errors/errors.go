package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code discriminates API error categories. Each code binds a canonical
// HTTP status, assigned by the matching factory below.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
	CodeInternal           Code = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// Error is the typed error carried across component boundaries. Op names
// the operation that produced it, in "component.action" form.
type Error struct {
	Status  int
	Code    Code
	Op      string
	Message string
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Code, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Code, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails attaches a structured payload exposed in the response body.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func newError(status int, code Code, op, message string) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Op:      op,
		Message: message,
	}
}

func BadRequest(op, message string) *Error {
	return newError(http.StatusBadRequest, CodeBadRequest, op, message)
}

func Unauthorized(op, message string) *Error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, op, message)
}

func Forbidden(op, message string) *Error {
	return newError(http.StatusForbidden, CodeForbidden, op, message)
}

func NotFound(op, message string) *Error {
	return newError(http.StatusNotFound, CodeNotFound, op, message)
}

func Conflict(op, message string) *Error {
	return newError(http.StatusConflict, CodeConflict, op, message)
}

func TooManyRequests(op, message string) *Error {
	return newError(http.StatusTooManyRequests, CodeTooManyRequests, op, message)
}

func Internal(op, message string) *Error {
	return newError(http.StatusInternalServerError, CodeInternal, op, message)
}

func ServiceUnavailable(op, message string) *Error {
	return newError(http.StatusServiceUnavailable, CodeServiceUnavailable, op, message)
}

// Wrap converts err into an internal API error unless it already is typed,
// in which case the existing classification is preserved.
func Wrap(op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	e := Internal(op, message)
	e.Cause = err
	return e
}

// From normalizes an arbitrary error into a typed API error.
func From(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Wrap("unknown", "internal server error", err)
}

// IsCode checks whether any error in the chain carries the provided code.
func IsCode(err error, code Code) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Code == code
	}
	return false
}

// Body is the error payload nested under the "error" key.
type Body struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Response is the wire shape of every API error.
type Response struct {
	Error Body `json:"error"`
}

// ToResponse serializes the error for the client. The underlying cause of
// an internal error is exposed only when exposeCause is set; production
// deployments keep it false and return the generic message.
func (e *Error) ToResponse(exposeCause bool) Response {
	message := e.Message
	if e.Code == CodeInternal && e.Cause != nil {
		if exposeCause {
			message = e.Cause.Error()
		} else {
			message = "internal server error"
		}
	}
	return Response{Error: Body{
		Message: message,
		Code:    e.Code,
		Details: e.Details,
	}}
}
