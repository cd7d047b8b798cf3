package cinebridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSleeps replaces the executor's backoff sleep and records the
// requested delays so tests stay fast and deterministic.
func captureSleeps(re *RetryExecutor) *[]time.Duration {
	var slept []time.Duration
	re.sleepFn = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return &slept
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	re := NewRetryExecutor(RetryPolicy{})
	want := []MovieRecord{{Title: "Paper Harbor", Year: 2016}}

	calls := 0
	movies, attempts, err := re.Execute(context.Background(), func(context.Context) ([]MovieRecord, error) {
		calls++
		return want, nil
	})

	require.NoError(t, err)
	assert.Equal(t, want, movies)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesRetryableThenSucceeds(t *testing.T) {
	re := NewRetryExecutor(RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2,
	})
	slept := captureSleeps(re)

	calls := 0
	movies, attempts, err := re.Execute(context.Background(), func(context.Context) ([]MovieRecord, error) {
		calls++
		if calls <= 2 {
			return nil, NewNetworkError("connection refused")
		}
		return []MovieRecord{{Title: "Low Orbit"}}, nil
	})

	require.NoError(t, err)
	assert.Len(t, movies, 1)
	assert.Equal(t, 3, attempts)
	// Exponential backoff: 100ms, then 200ms.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
}

func TestExecuteNonRetryableFailsImmediately(t *testing.T) {
	re := NewRetryExecutor(RetryPolicy{MaxRetries: 5})
	slept := captureSleeps(re)

	calls := 0
	_, attempts, err := re.Execute(context.Background(), func(context.Context) ([]MovieRecord, error) {
		calls++
		return nil, NewAgentError("model rejected the prompt", false)
	})

	require.Error(t, err)
	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindAgent, ce.Kind)
	assert.Equal(t, 1, ce.Attempts)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls, "zero retries for a non-retryable failure")
	assert.Empty(t, *slept)
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	re := NewRetryExecutor(RetryPolicy{
		MaxRetries:        2,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2,
	})
	captureSleeps(re)

	calls := 0
	_, attempts, err := re.Execute(context.Background(), func(context.Context) ([]MovieRecord, error) {
		calls++
		return nil, errors.New("dial tcp: connection refused")
	})

	require.Error(t, err)
	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindNetwork, ce.Kind, "heuristic classification of a raw error")
	assert.Equal(t, 3, ce.Attempts)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestExecuteTimeoutRace(t *testing.T) {
	// MaxRetries -1 disables retries so the timeout surfaces directly.
	re := NewRetryExecutor(RetryPolicy{
		MaxRetries: -1,
		Timeout:    30 * time.Millisecond,
	})

	released := make(chan struct{})
	_, _, err := re.Execute(context.Background(), func(context.Context) ([]MovieRecord, error) {
		<-released // operation keeps running; the executor stops waiting
		return nil, nil
	})
	close(released)

	require.Error(t, err)
	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindTimeout, ce.Kind)
	assert.True(t, ce.Retryable)
}

func TestExecuteCallerCancellation(t *testing.T) {
	re := NewRetryExecutor(RetryPolicy{MaxRetries: -1, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, err := re.Execute(ctx, func(ctx context.Context) ([]MovieRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	require.Error(t, err)
	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.False(t, ce.Retryable, "caller cancellation is not retryable")
}

func TestRetryPolicyDelayCap(t *testing.T) {
	p := RetryPolicy{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          500 * time.Millisecond,
		BackoffMultiplier: 3,
	}.withDefaults()

	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 300*time.Millisecond, p.Delay(1))
	assert.Equal(t, 500*time.Millisecond, p.Delay(2), "delay capped at MaxDelay")
	assert.Equal(t, 500*time.Millisecond, p.Delay(10))
}
