package domain

import "errors"

// Sentinel errors for the ledger core. Callers classify failures with
// errors.Is; everything else wraps these with fmt.Errorf and %w.
var (
	// ErrValidation indicates missing or invalid fields on the request,
	// e.g. a non-positive amount or an empty description.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unknown account, transaction, or pocket ID.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds indicates a pocket transfer exceeding the
	// source pocket's allocation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPersistence indicates an underlying storage failure.
	ErrPersistence = errors.New("persistence failure")
)
