// Package resilience retries idempotent calls against upstream services.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls Retry.
type Policy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Backoff is the delay before the first retry; it doubles each time.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Jitter is the fraction of each delay that is randomized, in [0, 1].
	Jitter float64
	// Retryable defaults to IsTransient.
	Retryable func(error) bool
	OnRetry   func(attempt int, err error)
}

// DefaultPolicy makes three attempts starting at one second.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Backoff: time.Second, MaxBackoff: 30 * time.Second}
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error is returned unchanged. A cancelled
// context stops the loop and returns the context error.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	delay := p.Backoff
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt >= p.Attempts || !p.Retryable(err) {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.jittered(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

func (p Policy) jittered(d time.Duration) time.Duration {
	if p.Jitter == 0 || d == 0 {
		return d
	}
	spread := float64(d) * p.Jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// LogRetries returns an OnRetry hook that logs each retry at warn level.
func LogRetries(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying request",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
