// Package common defines the shared error taxonomy and small helpers used
// across client and server layers. Callers should match errors with
// errors.As/IsKind rather than comparing messages.
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind identifies a class of failure. The values double as the wire
// "type" field of the error envelope.
type ErrorKind string

const (
	KindValidation   ErrorKind = "requestValidationError"
	KindUnauthorized ErrorKind = "requestUnauthorizedError"
	KindForbidden    ErrorKind = "requestForbiddenError"
	KindNotFound     ErrorKind = "notFound"
	KindInternal     ErrorKind = "internalError"

	// Internal subkinds for store-level write failures. Both map to 500.
	KindPutFailed    ErrorKind = "putFailed"
	KindDeleteFailed ErrorKind = "deleteFailed"
)

// InternalErrorMessage is the only text exposed for unexpected failures.
const InternalErrorMessage = "An internal error occurred"

// Error carries an ErrorKind, the HTTP-equivalent status the boundary layer
// should use, and one or more caller-facing messages.
type Error struct {
	Kind     ErrorKind
	Status   int
	Messages []string
	cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Messages, "; "))
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, status int, cause error, messages ...string) *Error {
	return &Error{Kind: kind, Status: status, Messages: messages, cause: cause}
}

// ValidationError reports malformed input or a business-rule violation.
func ValidationError(messages ...string) *Error {
	return newError(KindValidation, http.StatusUnprocessableEntity, nil, messages...)
}

// UnauthorizedError reports a missing/invalid token or bad credentials.
func UnauthorizedError(messages ...string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, nil, messages...)
}

// ForbiddenError is reserved; no current operation produces it.
func ForbiddenError(messages ...string) *Error {
	return newError(KindForbidden, http.StatusForbidden, nil, messages...)
}

// NotFoundError reports that a store query returned no rows for the given
// resource description.
func NotFoundError(resource string) *Error {
	return newError(KindNotFound, http.StatusNotFound, nil,
		fmt.Sprintf("The resource `%s` cannot be found", resource))
}

// InternalError wraps an unexpected failure (crypto fault, malformed token
// payload, store failure).
func InternalError(cause error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, cause, fmt.Sprint(cause))
}

// PutFailedError wraps a store-level write failure.
func PutFailedError(cause error) *Error {
	return newError(KindPutFailed, http.StatusInternalServerError, cause, fmt.Sprint(cause))
}

// DeleteFailedError wraps a store-level delete failure.
func DeleteFailedError(cause error) *Error {
	return newError(KindDeleteFailed, http.StatusInternalServerError, cause, fmt.Sprint(cause))
}

// KindOf returns the ErrorKind of err, or "" if err is not from this taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err belongs to the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// StatusOf returns the HTTP-equivalent status for err. Errors outside the
// taxonomy are treated as internal.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
