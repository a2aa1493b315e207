package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultJitter is the randomization factor applied to fixed intervals
const DefaultJitter = 0.2

// Notify is called after a failed attempt with the delay before the next one
type Notify func(err error, next time.Duration)

// fixed returns a constant interval backoff with bounded jitter.
func fixed(interval time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = interval
	b.Multiplier = 1
	b.RandomizationFactor = DefaultJitter
	b.Reset()
	return b
}

// Forever runs op until it succeeds or ctx is done, sleeping interval
// (plus jitter) between attempts. It returns ctx's error on cancellation.
func Forever(ctx context.Context, interval time.Duration, op func(ctx context.Context) error, notify Notify) error {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(fixed(interval)),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(notify)))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// Bounded runs op at most attempts times with exponential backoff starting
// at initial. Errors for which retryable returns false stop immediately.
func Bounded(ctx context.Context, attempts uint, initial time.Duration, retryable func(error) bool, op func(ctx context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 20 * initial
	b.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op(ctx)
		if err != nil && retryable != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	)
	return err
}
