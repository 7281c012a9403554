// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"time"
)

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation  ErrorType = iota // Input validation errors
	ErrorTypeNotFound                     // Resource not found (for recordings: may simply not exist yet)
	ErrorTypeConflict                     // Concurrent modification lost the compare-and-set race
	ErrorTypeInternal                     // Internal service errors
	ErrorTypeUnavailable                  // Dependency unavailable
	ErrorTypeAuthExpired                  // Provider credential expired; refresh and retry once
	ErrorTypeRateLimited                  // Provider throttled the call; back off before retrying
	ErrorTypeTransient                    // Network/5xx/timeout; retryable within the stage budget
	ErrorTypePermanent                    // Non-auth, non-throttle 4xx; never retried
)

// String returns a stable name for the error type, used in logs and the
// ProcessingRecord last-error code.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeAuthExpired:
		return "auth_expired"
	case ErrorTypeRateLimited:
		return "rate_limited"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return "internal"
	}
}

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping

	// RetryAfter is the provider-supplied backoff hint for rate-limited
	// calls. Zero means the caller picks its own delay.
	RetryAfter time.Duration
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// IsRetryable reports whether an error may be retried within a stage's
// attempt budget. AuthExpired is handled separately (refresh then one retry)
// and is not counted here.
func IsRetryable(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeRateLimited, ErrorTypeTransient, ErrorTypeUnavailable:
		return true
	}
	return false
}

// RetryAfterHint returns the provider-supplied backoff for a rate-limited
// error, or zero when none was given.
func RetryAfterHint(err error) time.Duration {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.RetryAfter
	}
	return 0
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewAuthExpiredError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeAuthExpired, Message: message, Err: errors.Join(err...)}
}

func NewRateLimitedError(message string, retryAfter time.Duration, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeRateLimited, Message: message, Err: errors.Join(err...), RetryAfter: retryAfter}
}

func NewTransientError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeTransient, Message: message, Err: errors.Join(err...)}
}

func NewPermanentError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypePermanent, Message: message, Err: errors.Join(err...)}
}
