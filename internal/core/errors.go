package core

import (
	"errors"
	"fmt"
)

// ValidationError rejects a write before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var (
	ErrWeekClosed      = &ValidationError{Field: "week", Reason: "week is closed, entries cannot be created or updated"}
	ErrEmptyWorker     = &ValidationError{Field: "worker", Reason: "worker name is required"}
	ErrMissingDate     = &ValidationError{Field: "date", Reason: "date is required"}
	ErrDateOutsideWeek = &ValidationError{Field: "date", Reason: "date is outside the week (Monday to Saturday)"}
	ErrNegativeAmount  = &ValidationError{Field: "amount", Reason: "amount cannot be negative"}
	ErrInvalidAmount   = &ValidationError{Field: "amount", Reason: "invalid amount"}
	ErrAmountTooLarge  = &ValidationError{Field: "amount", Reason: "amount exceeds 10000000000.00"}
	ErrWorkerNameTaken = &ValidationError{Field: "worker", Reason: "another worker already uses that name"}

	ErrNotFound = errors.New("not found")
)

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err carries a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
