// Package errors provides coded domain errors shared by services, stores, and
// transports. Services attach a Code describing the category of failure;
// transports map codes to HTTP statuses without inspecting error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure. Codes are part of the API contract:
// handlers branch on them and clients see them in responses.
type Code string

const (
	// CodeValidation marks malformed domain input, e.g. a succession
	// distribution that does not sum to 100.
	CodeValidation Code = "validation"

	// CodeInvalidInput marks input rejected at a trust boundary before it
	// becomes a domain value (bad civil id format, nil UUID).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks transport-level request problems (unparseable
	// body, missing field).
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a precondition violated by current state: duplicate
	// civil id, plan already executed, title under succession.
	CodeConflict Code = "conflict"

	// CodeUnauthorized marks a caller whose credential does not grant the
	// role an operation requires.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated caller acting outside its scope.
	CodeForbidden Code = "forbidden"

	// CodeWaitingPeriod marks an operation attempted before its time gate
	// has elapsed. The call may succeed later without any state change.
	CodeWaitingPeriod Code = "waiting_period"

	// CodeRateLimited marks a caller throttled by the rate limiter.
	CodeRateLimited Code = "rate_limited"

	// CodeTimeout marks an operation aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"

	// CodeInvariantViolation marks a state that should be unreachable. These
	// indicate bugs, not caller mistakes.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal marks infrastructure failures the caller cannot fix.
	CodeInternal Code = "internal"
)

// DomainError carries a Code alongside a message and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a DomainError with no underlying cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the chain for
// errors.Is/errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode; it reads better at call sites that branch on
// a single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps the error's code to an HTTP status for transports.
func (e *DomainError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeWaitingPeriod:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
