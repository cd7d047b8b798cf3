package cinebridge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, *fakeClock) {
	t.Helper()
	limiter := NewRateLimiter(cfg)
	t.Cleanup(limiter.Destroy)
	clock := newFakeClock()
	limiter.SetClock(clock.now)
	return limiter, clock
}

func TestCheckWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimiterConfig{MaxRequests: 3, Window: time.Second})

	// Concrete scenario: calls 1-3 admitted with counts 1,2,3; call 4 limited at the cap.
	for i := 1; i <= 3; i++ {
		res := limiter.Check("a")
		assert.False(t, res.Limited, "call %d should be admitted", i)
		assert.Equal(t, i, res.Count, "call %d count", i)
	}

	res := limiter.Check("a")
	assert.True(t, res.Limited)
	assert.Equal(t, 3, res.Count, "count is capped at MaxRequests")
}

func TestCheckWindowExpiry(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimiterConfig{MaxRequests: 2, Window: time.Second})

	limiter.Check("a")
	limiter.Check("a")
	require.True(t, limiter.Check("a").Limited)

	// Once every stamp ages past the window the key recovers fully.
	clock.advance(1100 * time.Millisecond)
	res := limiter.Check("a")
	assert.False(t, res.Limited)
	assert.Equal(t, 1, res.Count)
}

func TestCheckRecordsRejectedCalls(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimiterConfig{MaxRequests: 2, Window: time.Second})

	limiter.Check("a")
	clock.advance(200 * time.Millisecond)
	limiter.Check("a")
	clock.advance(200 * time.Millisecond)
	require.True(t, limiter.Check("a").Limited) // rejected, but still recorded

	// Advance far enough that the two admitted stamps age out while the
	// rejected call's stamp is still inside the window.
	clock.advance(900 * time.Millisecond)
	limiter.Cleanup()
	assert.Equal(t, 1, limiter.Stats().ActiveRequests)
}

func TestCheckTimingHints(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimiterConfig{MaxRequests: 5, Window: time.Second})

	first := limiter.Check("a")
	assert.Equal(t, int64(1000), first.Remaining, "fresh window: full window remains")

	clock.advance(400 * time.Millisecond)
	second := limiter.Check("a")
	assert.Equal(t, int64(600), second.Remaining)
	assert.Equal(t, first.ResetTime, second.ResetTime, "reset time pinned to the oldest stamp")
}

func TestResetSingleKey(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimiterConfig{MaxRequests: 1, Window: time.Second})

	require.False(t, limiter.Check("a").Limited)
	require.False(t, limiter.Check("b").Limited)
	require.True(t, limiter.Check("a").Limited)
	require.True(t, limiter.Check("b").Limited)

	limiter.Reset("a")

	assert.False(t, limiter.Check("a").Limited, "reset key starts fresh")
	assert.True(t, limiter.Check("b").Limited, "other keys unaffected")
}

func TestResetAll(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimiterConfig{MaxRequests: 1, Window: time.Second})

	limiter.Check("a")
	limiter.Check("b")
	limiter.ResetAll()

	stats := limiter.Stats()
	assert.Equal(t, 0, stats.TotalClients)
	assert.Equal(t, 0, stats.ActiveRequests)
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimiterConfig{MaxRequests: 10, Window: time.Second})

	limiter.Check("a")
	limiter.Check("b")
	clock.advance(500 * time.Millisecond)
	limiter.Check("b")

	clock.advance(700 * time.Millisecond) // "a" fully aged, "b" keeps one stamp
	limiter.Cleanup()

	stats := limiter.Stats()
	assert.Equal(t, 1, stats.TotalClients)
	assert.Equal(t, 1, stats.ActiveRequests)
}

func TestStatsCountsInWindowStamps(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimiterConfig{MaxRequests: 10, Window: time.Second})

	for i := 0; i < 3; i++ {
		limiter.Check("a")
	}
	limiter.Check("b")
	clock.advance(600 * time.Millisecond)
	limiter.Check("b")

	assert.Equal(t, 5, limiter.Stats().ActiveRequests)

	clock.advance(500 * time.Millisecond) // first four stamps age out
	assert.Equal(t, 1, limiter.Stats().ActiveRequests)
}

func TestConfigDefaults(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{})
	defer limiter.Destroy()

	cfg := limiter.Config()
	assert.Equal(t, DefaultMaxRequests, cfg.MaxRequests)
	assert.Equal(t, DefaultWindow, cfg.Window)
	assert.Equal(t, DefaultCleanupInterval, cfg.CleanupInterval)
}

func TestDestroyIdempotent(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxRequests: 1, Window: time.Second})

	// Safe without a prior Check, and safe to call repeatedly.
	limiter.Destroy()
	limiter.Destroy()

	assert.Equal(t, 0, limiter.Stats().TotalClients)
}

func TestCheckConcurrentKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimiterConfig{MaxRequests: 100, Window: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", n%4)
			for j := 0; j < 50; j++ {
				limiter.Check(key)
			}
		}(i)
	}
	wg.Wait()

	stats := limiter.Stats()
	assert.Equal(t, 4, stats.TotalClients)
	assert.Equal(t, 400, stats.ActiveRequests)
}
