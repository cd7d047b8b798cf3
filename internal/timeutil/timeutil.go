// internal/timeutil/timeutil.go
// -----------------------------
// Small helpers for working with millisecond timestamps. The rate limiter
// and the wire protocol both speak epoch milliseconds, so the conversions
// live in one place.
package timeutil

import "time"

// ToMs converts a time.Time to epoch milliseconds.
func ToMs(t time.Time) int64 {
	return t.UnixMilli()
}

// DurationMs converts a duration to whole milliseconds.
func DurationMs(d time.Duration) int64 {
	return d.Milliseconds()
}

// FromMs converts epoch milliseconds back to a time.Time.
func FromMs(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// IsInFuture reports whether a timestamp (in ms) is ahead of now.
func IsInFuture(ms int64) bool {
	return ms > time.Now().UnixMilli()
}
