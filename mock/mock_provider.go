// mock/mock_provider.go
// ---------------------
// Scripted recommendation provider for tests and examples: programmable
// failure counts for the aggregate path and a scripted event sequence for
// the streaming path.
package mock

import (
	"context"
	"sync"
	"time"

	cinebridge "github.com/cinebridge/cine-bridge"
)

var defaultMovies = []cinebridge.MovieRecord{
	{Title: "Mock Movie One", Year: 2020, Genres: []string{"drama"}, RuntimeMinutes: 100, Rating: 7.0},
	{Title: "Mock Movie Two", Year: 2021, Genres: []string{"comedy"}, RuntimeMinutes: 95, Rating: 6.5},
}

// Provider is a scripted RecommendationProvider.
type Provider struct {
	// Movies returned once failures are exhausted. Defaults to a small
	// built-in set.
	Movies []cinebridge.MovieRecord

	// FailuresBeforeSuccess makes the first N aggregate calls fail with
	// FailWith before succeeding.
	FailuresBeforeSuccess int

	// FailWith is the error used for scripted failures. Defaults to a
	// retryable network error.
	FailWith error

	// Delay is applied to every aggregate call before it resolves; used to
	// exercise the executor's timeout race.
	Delay time.Duration

	// Events is the scripted streaming sequence. EventDelay spaces the
	// emissions out.
	Events     []cinebridge.StreamEvent
	EventDelay time.Duration

	// StreamOpenErr makes GetRecommendationsStream fail synchronously.
	StreamOpenErr error

	mu    sync.Mutex
	calls int
}

func (p *Provider) Name() string { return "mock" }

// Calls reports how many aggregate calls were made.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) GetRecommendations(ctx context.Context, _ *cinebridge.RecommendationRequest) ([]cinebridge.MovieRecord, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if call <= p.FailuresBeforeSuccess {
		if p.FailWith != nil {
			return nil, p.FailWith
		}
		return nil, cinebridge.NewNetworkError("mock provider: scripted failure")
	}

	if len(p.Movies) > 0 {
		return p.Movies, nil
	}
	return defaultMovies, nil
}

func (p *Provider) GetRecommendationsStream(ctx context.Context, _ *cinebridge.RecommendationRequest) (<-chan cinebridge.StreamEvent, error) {
	if p.StreamOpenErr != nil {
		return nil, p.StreamOpenErr
	}

	events := make(chan cinebridge.StreamEvent)
	go func() {
		defer close(events)
		for _, ev := range p.Events {
			if p.EventDelay > 0 {
				select {
				case <-time.After(p.EventDelay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
