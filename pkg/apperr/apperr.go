// Package apperr defines the error taxonomy shared by all API components.
//
// Every failure that crosses the HTTP boundary is classified with a Code;
// the code maps 1:1 to an HTTP status. Unexpected failures (store errors,
// encoding errors) are wrapped as CodeInternal and their detail is kept on
// the wrapped cause for server-side logging only; the client never sees it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error classification.
type Code string

const (
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeValidation      Code = "validation"
	CodeInternal        Code = "internal"
)

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Unauthenticated reports a request with no verified principal.
func Unauthenticated(message string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: message}
}

// Forbidden reports a valid principal with insufficient authority.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// NotFound reports an absent target entity.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Conflict reports an operation invalid in the current state.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Validation reports malformed input.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// Internal wraps an unexpected failure. The client-visible message is always
// generic; the cause stays attached for logging.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", cause: cause}
}

// Internalf wraps an unexpected failure with formatted context.
func Internalf(format string, args ...interface{}) *Error {
	return Internal(fmt.Errorf(format, args...))
}

// From classifies an arbitrary error. Already-classified errors pass through;
// anything else becomes CodeInternal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// CodeOf returns the classification of err, CodeInternal when unclassified.
func CodeOf(err error) Code {
	return From(err).Code
}

// IsNotFound reports whether err is classified CodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsConflict reports whether err is classified CodeConflict.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
