// adapters/catalog_adapter.go
// ---------------------------
// Deterministic in-process provider backed by a static movie catalog.
// Default provider for development and examples, and a convenient real
// implementation for exercising the full pipeline without network access.
package adapters

import (
	"context"
	"strings"

	cinebridge "github.com/cinebridge/cine-bridge"
)

const CatalogDefaultLimit = 5

// CatalogProvider matches requests against an in-memory catalog.
type CatalogProvider struct {
	catalog []cinebridge.MovieRecord
}

// NewCatalogProvider uses the supplied catalog, or the built-in one when
// movies is empty.
func NewCatalogProvider(movies []cinebridge.MovieRecord) *CatalogProvider {
	if len(movies) == 0 {
		movies = builtinCatalog
	}
	return &CatalogProvider{catalog: movies}
}

func (p *CatalogProvider) Name() string { return "catalog" }

func (p *CatalogProvider) GetRecommendations(ctx context.Context, req *cinebridge.RecommendationRequest) ([]cinebridge.MovieRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = CatalogDefaultLimit
	}

	var out []cinebridge.MovieRecord
	for _, m := range p.catalog {
		if matches(m, req) {
			out = append(out, m)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GetRecommendationsStream emits an intro text event, one movie event per
// match, then closes the channel. Emission honors ctx so abandoned
// sessions do not leak the producer goroutine.
func (p *CatalogProvider) GetRecommendationsStream(ctx context.Context, req *cinebridge.RecommendationRequest) (<-chan cinebridge.StreamEvent, error) {
	movies, err := p.GetRecommendations(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan cinebridge.StreamEvent)
	go func() {
		defer close(events)
		intro := "Here is what the catalog has for you."
		if len(movies) == 0 {
			intro = "The catalog has no titles matching those filters."
		}
		if !emit(ctx, events, cinebridge.TextEvent(intro)) {
			return
		}
		for _, m := range movies {
			if !emit(ctx, events, cinebridge.MovieEvent(m)) {
				return
			}
		}
	}()
	return events, nil
}

func emit(ctx context.Context, ch chan<- cinebridge.StreamEvent, ev cinebridge.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func matches(m cinebridge.MovieRecord, req *cinebridge.RecommendationRequest) bool {
	if len(req.Genres) > 0 && !overlaps(m.Genres, req.Genres) {
		return false
	}
	if rt := req.Runtime; rt != nil {
		if rt.Min > 0 && m.RuntimeMinutes < rt.Min {
			return false
		}
		if rt.Max > 0 && m.RuntimeMinutes > rt.Max {
			return false
		}
	}
	if yr := req.ReleaseYear; yr != nil {
		if yr.From > 0 && m.Year < yr.From {
			return false
		}
		if yr.To > 0 && m.Year > yr.To {
			return false
		}
	}
	// Moods are advisory; the static catalog carries no mood metadata.
	return true
}

func overlaps(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

var builtinCatalog = []cinebridge.MovieRecord{
	{Title: "The Long Rain", Year: 2019, Genres: []string{"drama", "sci-fi"}, RuntimeMinutes: 118, Rating: 7.4, Summary: "A terraforming crew waits out a storm that never ends."},
	{Title: "Night Market", Year: 2021, Genres: []string{"thriller", "crime"}, RuntimeMinutes: 104, Rating: 7.1, Summary: "A food vendor witnesses a deal that was never meant to be seen."},
	{Title: "Paper Harbor", Year: 2016, Genres: []string{"drama"}, RuntimeMinutes: 131, Rating: 7.9, Summary: "Two siblings rebuild their father's ferry line after the flood."},
	{Title: "Comet Season", Year: 2023, Genres: []string{"romance", "comedy"}, RuntimeMinutes: 96, Rating: 6.8, Summary: "An astronomer falls for the tour guide ruining her observation window."},
	{Title: "Static", Year: 2018, Genres: []string{"horror", "mystery"}, RuntimeMinutes: 89, Rating: 6.5, Summary: "A late-night radio host takes a call from a frequency that should not exist."},
	{Title: "The Cartographer's Dog", Year: 2014, Genres: []string{"adventure", "family"}, RuntimeMinutes: 102, Rating: 7.2, Summary: "A mapmaker's dog leads an expedition he never agreed to."},
	{Title: "Glasswork", Year: 2022, Genres: []string{"drama", "thriller"}, RuntimeMinutes: 112, Rating: 7.6, Summary: "A restorer discovers a forgery ring operating out of her own studio."},
	{Title: "Low Orbit", Year: 2020, Genres: []string{"sci-fi", "action"}, RuntimeMinutes: 127, Rating: 7.0, Summary: "Salvage pilots race a decaying station's final pass."},
	{Title: "Hum", Year: 2017, Genres: []string{"comedy"}, RuntimeMinutes: 92, Rating: 6.9, Summary: "A choir that cannot sing enters the regional finals anyway."},
	{Title: "Winter Ledger", Year: 2015, Genres: []string{"crime", "drama"}, RuntimeMinutes: 140, Rating: 8.1, Summary: "An accountant inherits her client list, and her client's enemies."},
}
