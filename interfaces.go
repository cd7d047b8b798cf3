// interfaces.go
// -------------
// Contracts between the gateway core and its collaborators: upstream
// recommendation providers, request validators, and frame sinks.
package cinebridge

import (
	"context"
	"errors"
)

// ErrSinkClosed is returned by FrameSink implementations when a frame is
// written after Close.
var ErrSinkClosed = errors.New("frame sink is closed")

// RecommendationProvider is the opaque upstream dependency. Implementations
// live under adapters/ (and mock/ for tests).
type RecommendationProvider interface {
	// Name returns a short identifier used in logs and metrics.
	Name() string

	// GetRecommendations resolves the full recommendation set in one shot.
	// Failures should be returned as (or classifiable into) *ClassifiedError.
	GetRecommendations(ctx context.Context, req *RecommendationRequest) ([]MovieRecord, error)

	// GetRecommendationsStream starts an asynchronous event sequence for the
	// request. The returned channel is closed by the provider when the
	// sequence is exhausted; a terminal Error or Done event may precede the
	// close but is not required. Producers must honor ctx cancellation so an
	// abandoned stream does not leak its goroutine.
	GetRecommendationsStream(ctx context.Context, req *RecommendationRequest) (<-chan StreamEvent, error)
}

// RequestValidator checks structural correctness of an already-normalized
// request. Validation runs once per logical gateway call, never per retry
// attempt.
type RequestValidator interface {
	Validate(req *RecommendationRequest) error
}

// FrameSink receives ordered wire frames from the stream dispatcher.
// Close must be tolerant of being called more than once; the dispatcher
// additionally guarantees it triggers the close exactly once per session.
type FrameSink interface {
	Write(f Frame) error
	Close() error
}
