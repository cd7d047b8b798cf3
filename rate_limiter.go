// rate_limiter.go
// ----------------
// Per-client sliding-window admission control. Each client key owns an
// ordered slice of request timestamps (epoch ms); a check prunes stamps
// older than the window, records the current call, and reports whether the
// raw count exceeds the configured maximum.
//
// Two behaviors are deliberate and load-bearing:
//   - A rejected call still records its timestamp, so a client hammering
//     the gateway keeps itself limited until its stamps age out.
//   - The reported count is capped at MaxRequests even when the raw window
//     holds more stamps, so callers see "count = limit" during a burst.
//
// A background janitor prunes idle keys on CleanupInterval. The janitor is
// owned by the limiter instance and stops on Destroy, so independent
// limiters can coexist in tests without leaking timers.
package cinebridge

import (
	"sync"
	"time"

	"github.com/cinebridge/cine-bridge/internal/logging"
	"github.com/cinebridge/cine-bridge/internal/metrics"
	"github.com/cinebridge/cine-bridge/internal/timeutil"
)

const (
	DefaultMaxRequests     = 60
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 60 * time.Second
)

// RateLimiterConfig configures a RateLimiter. Zero values fall back to the
// package defaults.
type RateLimiterConfig struct {
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}

// LimiterStats is a point-in-time snapshot of limiter state.
type LimiterStats struct {
	TotalClients   int `json:"totalClients"`
	ActiveRequests int `json:"activeRequests"`
}

// RateLimiter tracks request timestamps per client key. Safe for concurrent
// use; window records are small, so a single coarse mutex is enough.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimiterConfig
	records map[string][]int64

	nowFn   func() time.Time
	stopCh  chan struct{}
	stopped bool
}

// NewRateLimiter creates a limiter and starts its background janitor.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	r := &RateLimiter{
		cfg:     cfg.withDefaults(),
		records: make(map[string][]int64),
		nowFn:   time.Now,
		stopCh:  make(chan struct{}),
	}
	go r.janitor()
	return r
}

// SetClock overrides the limiter's time source. Test hook; not safe to call
// once checks are in flight.
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.nowFn = now
}

// Check records the current call for key and reports the admission decision.
// It never fails; limited callers simply receive Limited=true with timing
// hints for a retry.
func (r *RateLimiter) Check(key string) AdmissionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	nowMs := timeutil.ToMs(r.nowFn())
	windowMs := timeutil.DurationMs(r.cfg.Window)

	record := pruneRecord(r.records[key], nowMs-windowMs)
	record = append(record, nowMs)
	r.records[key] = record

	rawCount := len(record)
	count := rawCount
	if count > r.cfg.MaxRequests {
		count = r.cfg.MaxRequests
	}
	oldest := record[0]

	result := AdmissionResult{
		Limited:   rawCount > r.cfg.MaxRequests,
		Count:     count,
		Remaining: windowMs - (nowMs - oldest),
		ResetTime: oldest + windowMs,
	}

	if result.Limited {
		metrics.AdmissionDenied.Inc()
		logging.Debugf("rate limiter: key %q over limit (raw=%d max=%d)", key, rawCount, r.cfg.MaxRequests)
	} else {
		metrics.AdmissionAllowed.Inc()
	}
	return result
}

// Reset clears the record for a single key.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
}

// ResetAll clears every key's record.
func (r *RateLimiter) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string][]int64)
}

// Cleanup prunes expired timestamps for every key and drops keys whose
// record becomes empty. Called periodically by the janitor; callable
// manually as well.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()
}

func (r *RateLimiter) cleanupLocked() {
	cutoff := timeutil.ToMs(r.nowFn()) - timeutil.DurationMs(r.cfg.Window)
	for key, record := range r.records {
		pruned := pruneRecord(record, cutoff)
		if len(pruned) == 0 {
			delete(r.records, key)
			continue
		}
		r.records[key] = pruned
	}
}

// Stats prunes and then reports how many keys are tracked and how many
// timestamps are still inside the window across all keys.
func (r *RateLimiter) Stats() LimiterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()

	stats := LimiterStats{TotalClients: len(r.records)}
	for _, record := range r.records {
		stats.ActiveRequests += len(record)
	}
	return stats
}

// Config returns the effective (defaulted) configuration.
func (r *RateLimiter) Config() RateLimiterConfig {
	return r.cfg
}

// Destroy stops the janitor and discards all state. Idempotent, and safe to
// call on a limiter that never served a check.
func (r *RateLimiter) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.stopCh)
	r.records = make(map[string][]int64)
}

func (r *RateLimiter) janitor() {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// pruneRecord drops timestamps at or before cutoff. Records are
// append-only, so the first surviving index splits the slice.
func pruneRecord(record []int64, cutoff int64) []int64 {
	idx := 0
	for idx < len(record) && record[idx] <= cutoff {
		idx++
	}
	if idx == 0 {
		return record
	}
	return append([]int64(nil), record[idx:]...)
}
