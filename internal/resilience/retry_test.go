package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_FirstAttempt(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversFromTransient(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	v, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("busy"), http.StatusServiceUnavailable)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	last := NewTransientError(errors.New("still busy"), http.StatusTooManyRequests)
	_, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 0, last
	})
	assert.Same(t, last, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	calls := 0
	perm := errors.New("bad request")
	_, err := Retry(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, perm
	})
	assert.ErrorIs(t, err, perm)
	assert.Equal(t, 1, calls)
}

func TestRetry_CustomRetryable(t *testing.T) {
	calls := 0
	p := fastPolicy(2)
	p.Retryable = func(error) bool { return true }
	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("anything")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 3, Backoff: time.Hour}
	p.OnRetry = func(int, error) { cancel() }

	_, err := Retry(ctx, p, func(context.Context) (int, error) {
		return 0, NewTransientError(errors.New("busy"), http.StatusBadGateway)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Defaults(t *testing.T) {
	p := Policy{Jitter: 3}.withDefaults()
	assert.Equal(t, 1, p.Attempts)
	assert.Equal(t, 1.0, p.Jitter)
	assert.NotNil(t, p.Retryable)

	d := DefaultPolicy()
	assert.Equal(t, 3, d.Attempts)
	assert.Equal(t, time.Second, d.Backoff)
}

func TestPolicy_JitterBounds(t *testing.T) {
	p := Policy{Jitter: 0.5}
	for range 50 {
		got := p.jittered(100 * time.Millisecond)
		assert.GreaterOrEqual(t, got, 50*time.Millisecond)
		assert.LessOrEqual(t, got, 150*time.Millisecond)
	}
	assert.Equal(t, time.Second, Policy{}.jittered(time.Second))
}
