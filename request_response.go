// request_response.go
// -------------------
// Domain value types exchanged between callers, the gateway, and upstream
// recommendation providers: the normalized request with its filter set, the
// movie records returned by providers, the aggregate response envelope, and
// the tagged events that make up a recommendation stream.
package cinebridge

import "encoding/json"

// RuntimeRange bounds a movie's runtime in minutes. Zero values mean
// "unbounded" on that side.
type RuntimeRange struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// YearRange bounds a movie's release year, inclusive on both ends.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// RecommendationRequest is the normalized filter set handed to the gateway.
// Input-shape validation (types, trimming, defaulting) happens upstream of
// this package; structural validation (non-empty filter set, ordered ranges)
// is done by the configured RequestValidator.
type RecommendationRequest struct {
	Genres      []string      `json:"genres,omitempty"`
	Moods       []string      `json:"moods,omitempty"`
	Runtime     *RuntimeRange `json:"runtime,omitempty"`
	ReleaseYear *YearRange    `json:"releaseYear,omitempty"`
	Limit       int           `json:"limit,omitempty"`
}

// HasFilters reports whether at least one filter dimension is set.
func (r *RecommendationRequest) HasFilters() bool {
	return len(r.Genres) > 0 || len(r.Moods) > 0 || r.Runtime != nil || r.ReleaseYear != nil
}

// CacheKey returns a canonical representation of the request suitable as a
// response-cache key. Marshal order is deterministic for a fixed struct.
func (r *RecommendationRequest) CacheKey() string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return "rec:" + string(b)
}

// MovieRecord is a single recommended title as produced by a provider.
type MovieRecord struct {
	Title          string   `json:"title"`
	Year           int      `json:"year,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	RuntimeMinutes int      `json:"runtimeMinutes,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	Summary        string   `json:"summary,omitempty"`
}

// RecommendationResponse is the aggregate (non-streaming) result envelope.
type RecommendationResponse struct {
	RequestID string                 `json:"requestId"`
	Timestamp int64                  `json:"timestamp"` // epoch ms
	Request   *RecommendationRequest `json:"request"`
	Movies    []MovieRecord          `json:"movies"`
	Count     int                    `json:"count"`
	ElapsedMs int64                  `json:"elapsedMs"`
	Attempts  int                    `json:"attempts"`
	Cached    bool                   `json:"cached,omitempty"`
}

// AdmissionResult is produced fresh on every RateLimiter.Check call and
// never stored.
type AdmissionResult struct {
	Limited   bool  `json:"limited"`
	Count     int   `json:"count"`
	Remaining int64 `json:"remaining"` // ms until the oldest stamp leaves the window
	ResetTime int64 `json:"resetTime"` // epoch ms when the window frees up
}

// EventType tags a StreamEvent variant. The values double as SSE event
// names on the wire.
type EventType string

const (
	EventText  EventType = "text"
	EventMovie EventType = "movie"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// StreamEvent is one element of a provider's recommendation stream.
// Done and Error are terminal: a well-behaved source emits at most one of
// them, as its last event. The dispatcher enforces this on the wire side
// regardless.
type StreamEvent struct {
	Type  EventType
	Text  string
	Movie *MovieRecord
	Err   *ClassifiedError
}

func TextEvent(s string) StreamEvent         { return StreamEvent{Type: EventText, Text: s} }
func MovieEvent(m MovieRecord) StreamEvent   { return StreamEvent{Type: EventMovie, Movie: &m} }
func DoneEvent() StreamEvent                 { return StreamEvent{Type: EventDone} }
func ErrorEvent(e *ClassifiedError) StreamEvent { return StreamEvent{Type: EventError, Err: e} }

// Frame is a single wire-level unit handed to a FrameSink:
// "event: <Event>\ndata: <Data>\n\n" in SSE terms.
type Frame struct {
	Event string
	Data  string
}
