// Package dErrors defines the tagged error type used across domain services.
//
// Services return *Error values carrying a machine-readable Code so callers
// can branch on the kind of failure (retry vs. abort, 4xx vs. 5xx) without
// string matching. Infrastructure layers return pkg/sentinel errors instead;
// services translate those into domain errors at the boundary.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure. The set is closed: adding a code means
// every HTTP/status mapping switch must be revisited.
type Code string

const (
	// CodeInvalidInput marks input that fails validation at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a structurally malformed request.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks an operation on an entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks an operation rejected by the entity's current state.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks a request with missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller lacking the required role.
	CodeForbidden Code = "forbidden"
	// CodeIntegrity marks a detected tamper or corruption condition. These are
	// reported, never auto-repaired.
	CodeIntegrity Code = "integrity"
	// CodeHazard marks a platform-level disruption (keystore clear, OS change)
	// that invalidated cryptographic material.
	CodeHazard Code = "hazard"
	// CodeUnavailable marks a dependency that is temporarily unreachable.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout marks an operation cancelled by deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal marks everything else. Callers should not retry.
	CodeInternal Code = "internal"
)

// Error is the concrete domain error. It wraps an optional cause so
// errors.Is/As keep working through it.
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

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for readability at call sites:
//
//	if dErrors.Is(err, dErrors.CodeNotFound) { ... }
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors so transports always have something to map.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
