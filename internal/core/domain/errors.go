package domain

import "errors"

// Error taxonomy for the workflows. Precondition failures (double
// approval, already-processed withdrawal) are NOT errors: those
// operations return (false, nil) because losing such a race is an
// expected outcome.
var (
	// ErrValidation marks malformed input; the caller re-prompts in the
	// same state.
	ErrValidation = errors.New("validation failed")

	// ErrPolicy marks input that violates a business rule, e.g. a
	// withdrawal below the configured minimum.
	ErrPolicy = errors.New("policy violation")

	// ErrInsufficientFunds is returned when a debit would drive a
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound is returned for lookups of entities that must exist
	// for the operation to make sense.
	ErrNotFound = errors.New("not found")
)
