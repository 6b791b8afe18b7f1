// Package shared contains common domain types, errors and events
// used across the user, habit, progress and coaching packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLockNotAcquired        = errors.New("lock not acquired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "habit", "achievement"
	Op      string // Operation that failed, e.g., "Create", "Complete"
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
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidUsername   = NewDomainError("user", "Validate", ErrEmptyValue, "username is required")
	ErrInvalidEmail      = NewDomainError("user", "Validate", ErrInvalidFormat, "email is invalid")
)

// Habit domain errors
var (
	ErrHabitNotFound      = NewDomainError("habit", "Find", ErrNotFound, "habit not found")
	ErrInvalidHabitName   = NewDomainError("habit", "Validate", ErrEmptyValue, "habit name is required")
	ErrInvalidCategory    = NewDomainError("habit", "Validate", ErrInvalidInput, "unknown habit category")
	ErrInvalidDifficulty  = NewDomainError("habit", "Validate", ErrValueOutOfRange, "difficulty must be between 1 and 5")
	ErrHabitInactive      = NewDomainError("habit", "Complete", ErrInvalidState, "habit is not active")
	ErrHabitNotOwned      = NewDomainError("habit", "Complete", ErrInvalidInput, "habit does not belong to user")
	ErrAlreadyCompleted   = NewDomainError("habit", "Complete", ErrAlreadyProcessed, "habit already completed today")
	ErrInvalidRating      = NewDomainError("habit", "Validate", ErrValueOutOfRange, "rating must be between 1 and 5")
	ErrCompletionNotFound = NewDomainError("habit", "FindCompletion", ErrNotFound, "completion not found")
)

// Mood domain errors
var (
	ErrInvalidMood   = NewDomainError("mood", "Validate", ErrValueOutOfRange, "mood must be between 1 and 5")
	ErrInvalidEnergy = NewDomainError("mood", "Validate", ErrValueOutOfRange, "energy must be between 1 and 5")
)

// Achievement domain errors
var (
	ErrAchievementConflict = NewDomainError("achievement", "Award", ErrConcurrentModification, "achievement already awarded by a concurrent request")
	ErrUnknownAchievement  = NewDomainError("achievement", "Find", ErrNotFound, "unknown achievement")
)

// External service errors
var (
	ErrAIProviderUnavailable = NewDomainError("coaching", "Generate", ErrServiceUnavailable, "AI provider is unavailable")
	ErrAIProviderMalformed   = NewDomainError("coaching", "Parse", ErrInvalidFormat, "AI provider returned a malformed answer")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInvalidState)
}

// IsConflict checks if the error reports a lost race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrLockNotAcquired)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
