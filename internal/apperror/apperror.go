// Package apperror defines the application error taxonomy. Every failure
// surfaced to a caller carries a stable code and the HTTP status it maps to.
package apperror

import (
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation  Code = "VALIDATION"
	CodeAuth        Code = "AUTH"
	CodeConflict    Code = "CONFLICT"
	CodeReferential Code = "REFERENTIAL"
	CodeNotFound    Code = "NOT_FOUND"
	CodeServer      Code = "SERVER"
)

type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation: malformed or missing input, rejected before touching the store.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

// Auth: bad credentials. Deliberately undifferentiated so the caller cannot
// tell which field was wrong.
func Auth(message string) *Error {
	return &Error{Code: CodeAuth, Message: message, Status: http.StatusUnauthorized}
}

// Conflict: unique-constraint violation (duplicate email).
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

// Referential: a foreign reference does not resolve to an existing row.
func Referential(message string) *Error {
	return &Error{Code: CodeReferential, Message: message, Status: http.StatusNotFound}
}

// NotFound: no matching row, or a conditional transition that did not fire.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message, Status: http.StatusNotFound}
}

// Internal wraps an unexpected store or infrastructure failure. The wrapped
// error is logged, never returned to the caller.
func Internal(err error) *Error {
	return &Error{Code: CodeServer, Message: "internal server error", Status: http.StatusInternalServerError, Err: err}
}
