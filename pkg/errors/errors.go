// Package errors defines custom error types for VoteSecure.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("resource conflict")
	ErrInternalError     = errors.New("internal error")
	ErrDuplicateVote     = errors.New("duplicate vote")
	ErrValidationFailed  = errors.New("vote validation failed")
	ErrElectionNotActive = errors.New("election not active")
	ErrIntegrity         = errors.New("vote record integrity violation")
	ErrStorageConflict   = errors.New("storage conflict")
	ErrInvalidTransition = errors.New("invalid vote status transition")
	ErrKeyUnavailable    = errors.New("sealing key unavailable")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// ValidationError represents a validation error with field-specific details.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidationFailedError carries the failed check types for a rejected vote
// attempt. Callers return the full report to the voter so the rejection can
// be explained, and persist it to the audit log.
type ValidationFailedError struct {
	FailedChecks []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("vote validation failed: %v", e.FailedChecks)
}

func (e *ValidationFailedError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationFailedError creates a validation failure error from the list
// of failed check types.
func NewValidationFailedError(failedChecks []string) *ValidationFailedError {
	return &ValidationFailedError{FailedChecks: failedChecks}
}

// IntegrityError represents a corrupted vote record: a hash mismatch or a
// failed decryption on read. Callers must surface it, never silently drop it.
type IntegrityError struct {
	VoteID string
	Reason string
	Cause  error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("vote %s integrity violation: %s", e.VoteID, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrIntegrity
}

// Is reports whether the target matches the integrity sentinel.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// NewIntegrityError creates a new integrity error for a vote record.
func NewIntegrityError(voteID, reason string, cause error) *IntegrityError {
	return &IntegrityError{VoteID: voteID, Reason: reason, Cause: cause}
}

// TransitionError represents a rejected vote status transition.
type TransitionError struct {
	VoteID string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("vote %s cannot transition from %s to %s", e.VoteID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError creates a new transition error.
func NewTransitionError(voteID, from, to string) *TransitionError {
	return &TransitionError{VoteID: voteID, From: from, To: to}
}
