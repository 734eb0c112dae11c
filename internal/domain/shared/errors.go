// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
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

	// Business rule errors
	ErrConflict         = errors.New("conflict")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "mentorship"
	Op      string // Operation that failed, e.g., "Request", "Respond"
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

// Profile domain errors
var (
	ErrMentorProfileNotFound = NewDomainError("profile", "FindMentor", ErrNotFound, "mentor profile not found")
	ErrMenteeProfileNotFound = NewDomainError("profile", "FindMentee", ErrNotFound, "mentee profile not found")
	ErrMentorProfileExists   = NewDomainError("profile", "CreateMentor", ErrAlreadyExists, "mentor profile already exists")
	ErrMentorAtCapacity      = NewDomainError("profile", "AdjustLoad", ErrCapacityExceeded, "mentor has reached the maximum number of mentees")
	ErrMentorLoadUnderflow   = NewDomainError("profile", "AdjustLoad", ErrInvalidState, "mentor has no mentees to release")
	ErrMaxBelowCurrentLoad   = NewDomainError("profile", "UpdateMentor", ErrCapacityExceeded, "max mentees cannot be lower than current mentees")
	ErrMentorLoadChanged     = NewDomainError("profile", "SetLoad", ErrConcurrentModification, "mentor load changed during reconciliation")
	ErrStaleMentorProfile    = NewDomainError("profile", "SaveMentor", ErrConcurrentModification, "mentor profile was modified concurrently")
	ErrInvalidRating         = NewDomainError("profile", "Validate", ErrValueOutOfRange, "rating must be between 1 and 5")
	ErrInvalidTrait          = NewDomainError("profile", "Validate", ErrInvalidInput, "unknown personality trait")
	ErrTraitOutOfRange       = NewDomainError("profile", "Validate", ErrValueOutOfRange, "personality trait value must be between 0 and 10")
	ErrSelfTestimonial       = NewDomainError("profile", "AddTestimonial", ErrInvalidOperation, "cannot leave a testimonial for yourself")
	ErrTestimonialForbidden  = NewDomainError("profile", "AddTestimonial", ErrForbidden, "testimonials require an active or completed mentorship with this mentor")
)

// Mentorship domain errors
var (
	ErrMentorshipNotFound = NewDomainError("mentorship", "Find", ErrNotFound, "mentorship not found")
	ErrSelfMentorship     = NewDomainError("mentorship", "Request", ErrInvalidOperation, "cannot request mentorship from yourself")
	ErrPendingRequest     = NewDomainError("mentorship", "Request", ErrConflict, "a pending mentorship request already exists for this mentor")
	ErrActiveMentorship   = NewDomainError("mentorship", "Request", ErrConflict, "an active mentorship already exists with this mentor")
	ErrOpenMentorship     = NewDomainError("mentorship", "Create", ErrConflict, "an open mentorship already exists for this pair")
	ErrMentorNotAccepting = NewDomainError("mentorship", "Request", ErrInvalidOperation, "mentor is not accepting mentorship requests")
	ErrNotMentor          = NewDomainError("mentorship", "Respond", ErrForbidden, "only the mentor can respond to this request")
	ErrNotParticipant     = NewDomainError("mentorship", "Authorize", ErrForbidden, "caller is not a participant of this mentorship")
	ErrNotPending         = NewDomainError("mentorship", "Respond", ErrInvalidState, "mentorship request is not pending")
	ErrNotActive          = NewDomainError("mentorship", "Transition", ErrInvalidState, "mentorship is not active")
	ErrAlreadyFinal       = NewDomainError("mentorship", "Transition", ErrInvalidState, "mentorship is already in a terminal state")
	ErrInvalidAction      = NewDomainError("mentorship", "Respond", ErrInvalidInput, "action must be accept or decline")
	ErrInvalidFocusArea   = NewDomainError("mentorship", "Validate", ErrInvalidInput, "unknown focus area")
	ErrGoalNotFound       = NewDomainError("mentorship", "FindGoal", ErrNotFound, "goal not found")
	ErrMeetingNotFound    = NewDomainError("mentorship", "FindMeeting", ErrNotFound, "meeting not found")
	ErrStaleMentorship    = NewDomainError("mentorship", "Save", ErrConcurrentModification, "mentorship was modified concurrently")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsForbidden checks if the error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflict checks if the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCapacityExceeded checks if the error is a capacity violation.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsConcurrentModification checks if the error is an optimistic locking failure.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsBusinessRule reports whether err is an expected, caller-induced failure.
func IsBusinessRule(err error) bool {
	return IsNotFound(err) ||
		IsAlreadyExists(err) ||
		IsForbidden(err) ||
		IsConflict(err) ||
		IsCapacityExceeded(err) ||
		IsValidation(err) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrConcurrentModification)
}
