package shared

import "errors"

// ErrorKind classifies a domain error so callers can map it to a response
type ErrorKind string

const (
	ErrorKindValidation   ErrorKind = "VALIDATION"    // Malformed input, nothing mutated
	ErrorKindBusinessRule ErrorKind = "BUSINESS_RULE" // Input is well-formed but a ledger rule rejects it
	ErrorKindNotFound     ErrorKind = "NOT_FOUND"     // Referenced entity does not exist
	ErrorKindConflict     ErrorKind = "CONFLICT"      // Concurrent modification detected
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets sentinel errors match instances carrying a more specific message.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new business-rule domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    ErrorKindBusinessRule,
	}
}

// NewValidationError creates a domain error for rejected input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: ErrorKindValidation}
}

// NewNotFoundError creates a domain error for a missing entity
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: ErrorKindNotFound}
}

// NewConflictError creates a domain error for a concurrency conflict
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: ErrorKindConflict}
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Kind: e.Kind}
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInvalidAmount       = NewValidationError("INVALID_AMOUNT", "Amount must be positive")
	ErrDuplicateRequest    = NewDomainError("DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
)

// KindOf returns the kind of a domain error, or "" when err is not a DomainError
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}

// IsValidation reports whether err is a validation domain error
func IsValidation(err error) bool {
	return KindOf(err) == ErrorKindValidation
}

// IsBusinessRule reports whether err is a business-rule violation
func IsBusinessRule(err error) bool {
	return KindOf(err) == ErrorKindBusinessRule
}

// IsConflict reports whether err is a concurrency conflict
func IsConflict(err error) bool {
	return KindOf(err) == ErrorKindConflict
}
