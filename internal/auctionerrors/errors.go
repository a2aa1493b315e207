package auctionerrors

import (
	"context"
	"errors"
)

// Request-level errors, rejected synchronously with no side effects
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("auction not found")
	ErrForbidden  = errors.New("forbidden")
)

// Repository-level errors
var (
	ErrNoBids        = errors.New("no bids found for auction")
	ErrAlreadyExists = errors.New("already exists")
)

// Concurrency and infrastructure errors
var (
	// ErrConflict means a conditional write lost a race on its key.
	ErrConflict = errors.New("conflicting concurrent update")
	// ErrTransient marks store or channel unavailability that is worth retrying.
	ErrTransient = errors.New("temporarily unavailable")
	// ErrFatalStartup means required storage could not be initialized.
	ErrFatalStartup = errors.New("fatal startup error")
)

// IsRetryable reports whether the caller may retry the operation later.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict) || errors.Is(err, context.DeadlineExceeded)
}
