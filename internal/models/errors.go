package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookups and state.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrVersionConflict   = errors.New("version conflict")
	ErrTransientIO       = errors.New("transient i/o failure")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrNoPrincipal       = errors.New("no authenticated principal")
	ErrValidation        = errors.New("validation failed")
)

// ErrDecisionNotAllowed is returned when an acceptance decision arrives while
// the acceptance is not open for review. It matches ErrInvalidTransition.
var ErrDecisionNotAllowed = fmt.Errorf("%w: acceptance is not awaiting a decision", ErrInvalidTransition)

// TransitionError describes a rejected status move.
type TransitionError struct {
	Kind Kind
	From string
	To   string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Kind, e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ErrMissingField returns a validation error for an absent required field.
func ErrMissingField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%w: %s exceeds maximum length of %d", ErrValidation, field, maxLen)
}

// ErrInvalidValue returns a validation error for an out-of-domain value.
func ErrInvalidValue(field, value string) error {
	return fmt.Errorf("%w: invalid %s %q", ErrValidation, field, value)
}
