package jwtauth

import (
	"errors"
	"fmt"
)

// ErrorCode represents a validation error code
type ErrorCode string

const (
	ErrExpired              ErrorCode = "EXPIRED"
	ErrInvalidSignature     ErrorCode = "INVALID_SIGNATURE"
	ErrMissingToken         ErrorCode = "MISSING_TOKEN"
	ErrMalformed            ErrorCode = "MALFORMED"
	ErrNoneAlgorithm        ErrorCode = "NONE_ALGORITHM"
	ErrConfigError          ErrorCode = "CONFIG_ERROR"
	ErrUnsupportedAlgorithm ErrorCode = "UNSUPPORTED_ALGORITHM"
	ErrWrongKind            ErrorCode = "WRONG_KIND"
	ErrAccountInactive      ErrorCode = "ACCOUNT_INACTIVE"
)

// ValidationError represents a JWT validation error with a code and message
type ValidationError struct {
	Code     ErrorCode
	Message  string
	Internal error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ValidationError) Unwrap() error {
	return e.Internal
}

// Is reports whether target is a ValidationError carrying the same code,
// so callers can match with errors.Is(err, &ValidationError{Code: ErrExpired}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewValidationError creates a new validation error
func NewValidationError(code ErrorCode, message string, internal error) *ValidationError {
	return &ValidationError{
		Code:     code,
		Message:  message,
		Internal: internal,
	}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not a ValidationError.
func CodeOf(err error) ErrorCode {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Code
	}
	return ""
}

// IsTokenError reports whether err is a per-request token failure, as opposed to
// a configuration problem.
func IsTokenError(err error) bool {
	code := CodeOf(err)
	return code != "" && code != ErrConfigError
}
