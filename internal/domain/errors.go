package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger core matches exactly one of these via errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrInvalidPage       = errors.New("invalid page")
	ErrBusy              = errors.New("resource busy, retry later")
	ErrInternal          = errors.New("internal error")
)

var (
	// Account errors
	ErrAccountNotFound    = fmt.Errorf("account %w", ErrNotFound)
	ErrInvalidAccountName = fmt.Errorf("%w: invalid account name", ErrValidation)
	ErrMissingAccountID   = fmt.Errorf("%w: account id is required", ErrValidation)

	// Mutation errors
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrAmountTooLarge   = fmt.Errorf("%w: amount exceeds maximum allowed", ErrValidation)
	ErrAmountPrecision  = fmt.Errorf("%w: amount has more than 2 decimal places", ErrValidation)
	ErrSameAccount      = fmt.Errorf("%w: cannot transfer to same account", ErrValidation)
	ErrInvalidOperation = fmt.Errorf("%w: invalid operation type", ErrValidation)
	ErrMissingOperation = fmt.Errorf("%w: transfer type is required", ErrValidation)

	// Query errors
	ErrEmptyPattern = fmt.Errorf("%w: name pattern is required", ErrValidation)
)

// Internal wraps an unexpected persistence failure. The result matches both ErrInternal and err.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// IsBusinessError reports whether err is an expected outcome rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidPage)
}
