package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces outgoing requests to the video platform
type RateLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewRateLimiter creates a new RateLimiter with the given delay in milliseconds.
// A non-positive delay disables limiting.
func NewRateLimiter(delayMs int) *RateLimiter {
	delay := time.Duration(delayMs) * time.Millisecond
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, 1),
		delay:   delay,
	}
}

// Wait blocks until the next request may go out or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Delay returns the configured spacing
func (r *RateLimiter) Delay() time.Duration {
	return r.delay
}

// Pause sleeps for d unless ctx ends first
func Pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
