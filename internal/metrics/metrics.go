// internal/metrics/metrics.go
// ---------------------------
// Prometheus counters for the admission/retry/stream pipeline. Registered
// on the default registry; httpapi exposes them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdmissionAllowed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinebridge_admission_allowed_total",
		Help: "Requests admitted by the sliding-window rate limiter.",
	})

	AdmissionDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinebridge_admission_denied_total",
		Help: "Requests rejected by the sliding-window rate limiter.",
	})

	RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinebridge_retry_attempts_total",
		Help: "Retry attempts made against the upstream provider.",
	})

	StreamFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebridge_stream_frames_total",
		Help: "Frames written to stream sinks, by frame type.",
	}, []string{"type"})

	StreamSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebridge_stream_sessions_total",
		Help: "Stream sessions by terminal state.",
	}, []string{"state"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebridge_cache_lookups_total",
		Help: "Response cache lookups by result.",
	}, []string{"result"})
)
