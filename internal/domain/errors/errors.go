// Package errors provides standardized error types for the domain layer.
// Every error carries a category sentinel (used for HTTP mapping) and a
// stable code (used by clients and by callers that need to branch).
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrInvariant marks data that breaks a rule the calculation depends on
	ErrInvariant = errors.New("invariant violation")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap exposes both the category and the underlying cause
func (e *DomainError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// NewDomainError creates a new domain error
func NewDomainError(err error, code, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// WithCause attaches the error that triggered this one
func (e *DomainError) WithCause(cause error) *DomainError {
	e.cause = cause
	return e
}

// WithRetryable marks the error as retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    fmt.Sprintf("%s_NOT_FOUND", resource),
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// AlreadyExistsError creates an already exists error
func AlreadyExistsError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrAlreadyExists,
		Code:    fmt.Sprintf("%s_ALREADY_EXISTS", resource),
		Message: fmt.Sprintf("%s already exists", resource),
	}
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// InternalError creates an internal error
func InternalError(message string, err error) *DomainError {
	de := &DomainError{
		Err:     ErrInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		cause:   err,
	}
	if err != nil {
		de.Details = map[string]interface{}{"cause": err.Error()}
	}
	return de
}

// ConflictError creates a conflict error
func ConflictError(resource, reason string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    "CONFLICT",
		Message: fmt.Sprintf("conflict with %s: %s", resource, reason),
	}
}

// ServiceUnavailableError creates a service unavailable error naming the failing capability
func ServiceUnavailableError(service string, err error) *DomainError {
	de := &DomainError{
		Err:       ErrServiceUnavailable,
		Code:      "SERVICE_UNAVAILABLE",
		Message:   fmt.Sprintf("%s service is temporarily unavailable", service),
		Retryable: true,
		cause:     err,
		Details:   map[string]interface{}{"service": service},
	}
	if err != nil {
		de.Details["cause"] = err.Error()
	}
	return de
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsServiceUnavailable checks if an error is a service unavailable error
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsInvariant checks if an error is an invariant violation
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// HasCode reports whether err is a domain error with the given code
func HasCode(err error, code string) bool {
	return GetErrorCode(err) == code
}

// GetErrorDetails extracts details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
