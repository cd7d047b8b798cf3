// retry_executor.go
// -----------------
// Bounded-retry-with-backoff and timeout racing around a single provider
// call. The executor shields the gateway's non-streaming path from a flaky
// upstream: retryable failures (timeouts, network errors, explicitly
// flagged agent errors) are retried with exponential backoff up to
// MaxRetries; everything else propagates immediately.
//
// The timeout race abandons the operation rather than cancelling it: the
// goroutine running the call keeps going, its eventual result is dropped
// into a buffered channel, and the executor simply stops waiting.
package cinebridge

import (
	"context"
	"math"
	"time"

	"github.com/cinebridge/cine-bridge/internal/logging"
	"github.com/cinebridge/cine-bridge/internal/metrics"
)

const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = 500 * time.Millisecond
	DefaultMaxDelay          = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultCallTimeout       = 30 * time.Second
)

// RetryPolicy is immutable configuration for a RetryExecutor. Zero values
// take the package defaults; a negative MaxRetries disables retries.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Timeout           time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	} else if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.BackoffMultiplier <= 0 {
		p.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultCallTimeout
	}
	return p
}

// Delay returns the backoff before retry number attempt (0-based):
// min(InitialDelay * BackoffMultiplier^attempt, MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt)))
	if d > p.MaxDelay || d < 0 {
		d = p.MaxDelay
	}
	return d
}

// Operation is a single provider call wrapped by the executor.
type Operation func(ctx context.Context) ([]MovieRecord, error)

// RetryExecutor wraps operations with the timeout race and retry loop.
type RetryExecutor struct {
	policy RetryPolicy

	// sleepFn is swapped out in tests to avoid real backoff delays.
	sleepFn func(ctx context.Context, d time.Duration) error
}

func NewRetryExecutor(policy RetryPolicy) *RetryExecutor {
	return &RetryExecutor{
		policy:  policy.withDefaults(),
		sleepFn: sleepCtx,
	}
}

// Policy returns the effective (defaulted) policy.
func (re *RetryExecutor) Policy() RetryPolicy {
	return re.policy
}

// Execute runs op until it succeeds, fails non-retryably, or exhausts the
// retry budget. The returned error is always a *ClassifiedError carrying
// the number of attempts consumed.
func (re *RetryExecutor) Execute(ctx context.Context, op Operation) ([]MovieRecord, int, error) {
	attempt := 0
	for {
		movies, err := re.runOnce(ctx, op)
		if err == nil {
			if attempt > 0 {
				logging.Infof("retry executor: succeeded after %d attempts", attempt+1)
			}
			return movies, attempt + 1, nil
		}

		ce := Classify(err)
		if ce.Retryable && attempt < re.policy.MaxRetries {
			delay := re.policy.Delay(attempt)
			logging.Warnf("retry executor: attempt %d/%d failed (%s), retrying in %v",
				attempt+1, re.policy.MaxRetries+1, ce.Kind, delay)
			metrics.RetryAttempts.Inc()
			if sleepErr := re.sleepFn(ctx, delay); sleepErr != nil {
				ce.Attempts = attempt + 1
				return nil, attempt + 1, ce
			}
			attempt++
			continue
		}

		ce.Attempts = attempt + 1
		return nil, attempt + 1, ce
	}
}

// runOnce races one invocation of op against the policy timeout and the
// caller's context. On timeout the operation is abandoned, not cancelled.
func (re *RetryExecutor) runOnce(ctx context.Context, op Operation) ([]MovieRecord, error) {
	type opResult struct {
		movies []MovieRecord
		err    error
	}
	// Buffered so a late-finishing abandoned operation never blocks.
	resultCh := make(chan opResult, 1)

	go func() {
		movies, err := op(ctx)
		resultCh <- opResult{movies: movies, err: err}
	}()

	timer := time.NewTimer(re.policy.Timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.movies, res.err
	case <-timer.C:
		return nil, NewTimeoutError(re.policy.Timeout)
	case <-ctx.Done():
		return nil, Classify(ctx.Err())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
