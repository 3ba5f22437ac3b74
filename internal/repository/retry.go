package repository

import (
	"context"
	"errors"
	"time"

	apperrors "vehicle_import/pkg/errors"
)

// Operation is a unit of work that can be re-run from scratch.
type Operation func() error

// IsRetryable decides whether a failed Operation may be attempted again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// WithRetries runs op once plus up to maxRetries more times while
// isRetryable(err) holds, with a small incremental backoff. A cancelled ctx
// ends the backoff early and returns the last error joined with ctx.Err().
func WithRetries(ctx context.Context, op Operation, maxRetries int, isRetryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !isRetryable(err) {
			break
		}

		backoff := time.NewTimer(time.Duration(25*(attempt+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			backoff.Stop()
			return errors.Join(err, ctx.Err())
		case <-backoff.C:
		}
	}
	return err
}

// IsTransientConflict matches races that a fresh transaction resolves:
// unique violations on the open-inquiry index, serialization failures,
// deadlocks and the open inquiry closing between our insert and re-read.
func IsTransientConflict(err error) bool {
	if errors.Is(err, errOpenInquiryVanished) {
		return true
	}
	if isPgCode(err, pgUniqueViolation, pgSerializationError, pgDeadlockDetected) {
		return true
	}
	return errors.Is(err, apperrors.ErrConflict)
}
