// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by the ledger services. Callers match them with errors.Is;
// the HTTP layer maps them to status codes.
var (
	// ErrInvalidArgument marks a malformed or missing identifier or filter.
	// Never retried automatically.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a scoped query with no matching records, or a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that the current record state does not allow.
	ErrConflict = errors.New("conflict")
	// ErrStorageUnavailable marks a failed store round trip. Reads are safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// storageError wraps a failed store call. Context cancellation and deadline
// errors pass through unchanged since they describe the caller, not the store.
func storageError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
