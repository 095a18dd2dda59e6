package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how a flaky call is retried
type RetryPolicy struct {
	MaxRetries      int           // total attempts
	InitialInterval time.Duration // first backoff
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration // per-attempt deadline, 0 for none
}

// DefaultRetryPolicy is three attempts with a 30s socket timeout
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  30 * time.Second,
	}
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// RetryWithBackoff runs fn up to policy.MaxRetries times with exponential backoff.
// Each attempt gets its own timeout derived from ctx.
func RetryWithBackoff[T any](ctx context.Context, policy RetryPolicy, logger *Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	maxRetries := policy.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	bo := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		bo.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		bo.MaxInterval = policy.MaxInterval
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if policy.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}
		defer cancel()
		return fn(actx)
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxRetries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Attempt %d/%d failed: %v (retrying in %v)", attempt, maxRetries, err, next.Round(time.Millisecond))
		}),
	)
	if err != nil {
		return result, fmt.Errorf("all %d attempts failed, last error: %w", attempt, err)
	}
	return result, nil
}
