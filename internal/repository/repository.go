// Package repository provides data access layer implementations.
package repository

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common errors for repository operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCurrencyNotFound    = errors.New("currency not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBetResultNotFound   = errors.New("bet result not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// parseAmount converts a NUMERIC column read as text into a decimal.
// NULL sums arrive as nil and mean zero.
func parseAmount(s *string) (decimal.Decimal, error) {
	if s == nil || *s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric value %q: %w", *s, err)
	}
	return d, nil
}
