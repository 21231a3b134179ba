// Package domainerrors carries typed error codes from services to transports.
//
// Services return these errors so that handlers can map them to responses
// without string matching. Stores return pkg/platform/sentinel errors instead,
// which services translate into a code here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput: malformed email, domain, action or request id.
	CodeInvalidInput Code = "invalid_input"
	// CodeDuplicateRequest: a pending admission request already exists for the email.
	CodeDuplicateRequest Code = "duplicate_request"
	// CodeNotFound: unknown admission request, whitelist entry or admin.
	CodeNotFound Code = "not_found"
	// CodeAlreadyProcessed: the admission request left pending before this call.
	CodeAlreadyProcessed Code = "already_processed"
	// CodeForbidden: the actor lacks the capability for the operation.
	CodeForbidden Code = "permission_denied"
	// CodeRateLimited: the caller exceeded the configured window for its limit class.
	CodeRateLimited Code = "rate_limited"
	// CodeUnavailable: the backing store could not be reached or timed out.
	CodeUnavailable Code = "store_unavailable"

	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// Is is an alias for HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// MessageOf returns the message of the outermost coded error, or err.Error().
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
