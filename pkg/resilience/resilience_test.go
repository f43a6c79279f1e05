package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func fail(context.Context) error    { return errBackend }
func succeed(context.Context) error { return nil }

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("postgres", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	now := time.Now()
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail, nil), errBackend)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail, nil), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, succeed, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, succeed, nil))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestCircuitBreakerHalfOpenProbeFails(t *testing.T) {
	cb := NewCircuitBreaker("postgres", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	cb.Execute(ctx, fail, nil)
	now = now.Add(time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail, nil), errBackend)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed, nil), ErrCircuitOpen)
}

func TestCircuitBreakerIgnoresCallerCancel(t *testing.T) {
	cb := NewCircuitBreaker("postgres", CircuitBreakerConfig{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() }, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerIsFailureFilter(t *testing.T) {
	errBadQuery := errors.New("syntax error in tsquery")
	cb := NewCircuitBreaker("postgres", CircuitBreakerConfig{FailureThreshold: 1})
	notClientErr := func(err error) bool { return !errors.Is(err, errBadQuery) }

	cb.Execute(context.Background(), func(context.Context) error { return errBadQuery }, notClientErr)
	assert.Equal(t, StateClosed, cb.State())
	cb.Execute(context.Background(), fail, notClientErr)
	assert.Equal(t, StateOpen, cb.State())
}

func TestRetry(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), "publish", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func(context.Context) error {
		if calls.Add(1) < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhausted(t *testing.T) {
	err := Retry(context.Background(), "publish", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, fail)
	assert.ErrorIs(t, err, errBackend)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Retry(ctx, "publish", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errBackend
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryDelayCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 10}.withDefaults()
	cfg.JitterFraction = 0
	assert.Equal(t, time.Second, cfg.delay(1))
	assert.Equal(t, 3*time.Second, cfg.delay(2))
}
