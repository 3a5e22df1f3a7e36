// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
// Every error returned by a core operation matches exactly one of these kinds.
var (
	// ErrNotFound - referenced account, course or enrollment does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict - uniqueness violated (duplicate enrollment, taken email).
	ErrConflict = errors.New("entity already exists")

	// ErrForbidden - requester lacks the role or ownership required.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation - input out of range or not in the allowed set.
	ErrValidation = errors.New("validation error")

	// ErrStorageUnavailable - storage failed or timed out; the transaction was rolled back.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnauthorized - requester identity is missing or cannot be verified.
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "account", "enrollment", "gamification"
	Op      string // Operation that failed, e.g., "Enroll", "RecordProgress"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ValidationError is a shortcut for the most common domain error.
func ValidationError(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// StorageError wraps a driver error as ErrStorageUnavailable.
func StorageError(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStorageUnavailable, "storage operation failed", err)
}

// Account domain errors
var (
	ErrAccountNotFound = NewDomainError("account", "Find", ErrNotFound, "account not found")
	ErrEmailTaken      = NewDomainError("account", "Create", ErrConflict, "email already registered")
	ErrAdminOnly       = NewDomainError("account", "Authorize", ErrForbidden, "admin role required")
)

// Course domain errors
var (
	ErrCourseNotFound = NewDomainError("course", "Find", ErrNotFound, "course not found")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled    = NewDomainError("enrollment", "Create", ErrConflict, "already enrolled in this course")
	ErrNotEnrollmentOwner = NewDomainError("enrollment", "Authorize", ErrForbidden, "enrollment belongs to another account")
	ErrPrivilegedOnly     = NewDomainError("enrollment", "Authorize", ErrForbidden, "instructor or admin role required")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsForbidden checks if the error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsStorageUnavailable checks if the error came from a failed storage call.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsUnauthorized checks if the requester identity could not be established.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
