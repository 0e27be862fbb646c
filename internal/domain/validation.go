package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MinAccountNameLength = 3
	MaxAccountNameLength = 50
	MaxAmount            = "1000000000000" // 1 trillion
	MoneyScale           = 2
	MaxPageSize          = 1000
	DefaultPageSize      = 20

	// MaxPageOffset bounds page*size so every backend can hold the offset in an int32.
	MaxPageOffset = math.MaxInt32
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// NormalizeAccountName trims the name and checks its length in characters.
func NormalizeAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)

	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if n < MinAccountNameLength || n > MaxAccountNameLength {
		return "", fmt.Errorf("%w: name must have between %d and %d characters",
			ErrInvalidAccountName, MinAccountNameLength, MaxAccountNameLength)
	}

	return name, nil
}

// ValidateAmount validates a deposit, withdrawal or transfer amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return ErrAmountPrecision
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidatePattern trims a name pattern and rejects empty ones.
func ValidatePattern(pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", ErrEmptyPattern
	}
	return pattern, nil
}

// ValidatePage checks zero-based page coordinates.
func ValidatePage(page, size int) error {
	if page < 0 {
		return fmt.Errorf("%w: page must be >= 0, got %d", ErrInvalidPage, page)
	}
	if size <= 0 {
		return fmt.Errorf("%w: size must be > 0, got %d", ErrInvalidPage, size)
	}
	if size > MaxPageSize {
		return fmt.Errorf("%w: size must be <= %d, got %d", ErrInvalidPage, MaxPageSize, size)
	}
	if page > MaxPageOffset/size {
		return fmt.Errorf("%w: page %d of size %d is beyond the last addressable record", ErrInvalidPage, page, size)
	}
	return nil
}

// ValidatePagination validates and limits limit/offset parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// RoundHalfUp rounds to 2 decimals, halves going away from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
