package macro

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of failure reported to a macro.
type ErrorCode string

const (
	// ErrorCodeUnsupportedOperation is returned when an accessor is not legal
	// for the receiver, e.g. Values on a free text property definition.
	ErrorCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// ErrorCodeNotFound is returned when a named lookup has no match.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeQuerySyntax is returned when MQL text cannot be parsed.
	ErrorCodeQuerySyntax ErrorCode = "QUERY_SYNTAX"
	// ErrorCodeHostUnavailable is returned when a loader or the active
	// project scope fails.
	ErrorCodeHostUnavailable ErrorCode = "HOST_UNAVAILABLE"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrUnsupportedOperation = &Error{code: ErrorCodeUnsupportedOperation, message: "unsupported operation"}
	ErrNotFound             = &Error{code: ErrorCodeNotFound, message: "not found"}
	ErrQuerySyntax          = &Error{code: ErrorCodeQuerySyntax, message: "query syntax error"}
	ErrHostUnavailable      = &Error{code: ErrorCodeHostUnavailable, message: "host unavailable"}
)

var errNotWired = errors.New("no loader installed")

// Error is the concrete error type raised by this package.
type Error struct {
	code       ErrorCode
	message    string
	wrappedErr error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// UnsupportedOperation creates an error for an accessor that is not legal for
// the given property type.
func UnsupportedOperation(op string, t PropertyType) *Error {
	return &Error{
		code:    ErrorCodeUnsupportedOperation,
		message: fmt.Sprintf("%s is not supported for property definitions of type %q", op, t.Description()),
	}
}

// NotFound creates an error for a named lookup without a match.
func NotFound(resource, name string) *Error {
	return &Error{code: ErrorCodeNotFound, message: fmt.Sprintf("%s %q not found", resource, name)}
}

// QuerySyntax creates an error for unparsable MQL. Query engines may use it or
// return their own error type matching ErrQuerySyntax.
func QuerySyntax(message string) *Error {
	return &Error{code: ErrorCodeQuerySyntax, message: message}
}

// HostUnavailable wraps a failure coming from a loader or the active project
// scope. The cause stays reachable through errors.Is and errors.As.
func HostUnavailable(op string, err error) *Error {
	return &Error{code: ErrorCodeHostUnavailable, message: op, wrappedErr: err}
}
