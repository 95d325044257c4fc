package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrRecordNotFound = fmt.Errorf("%w: experiment record", ErrNotFound)
	ErrRunNotFound    = fmt.Errorf("%w: run", ErrNotFound)

	// World model integrity errors
	ErrInvariantViolation = errors.New("world model invariant violated")
	ErrDuplicateRecord    = errors.New("duplicate experiment record id")

	// Loop errors
	ErrExecutionFailed = errors.New("experiment execution failed")
	ErrProposalFailed  = errors.New("proposal generation failed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewInvariantError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvariantError(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
