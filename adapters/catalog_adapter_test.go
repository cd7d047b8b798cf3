package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cinebridge "github.com/cinebridge/cine-bridge"
)

func testCatalog() []cinebridge.MovieRecord {
	return []cinebridge.MovieRecord{
		{Title: "A", Year: 2010, Genres: []string{"drama"}, RuntimeMinutes: 100},
		{Title: "B", Year: 2015, Genres: []string{"drama", "thriller"}, RuntimeMinutes: 130},
		{Title: "C", Year: 2020, Genres: []string{"comedy"}, RuntimeMinutes: 95},
		{Title: "D", Year: 2022, Genres: []string{"Drama"}, RuntimeMinutes: 110},
	}
}

func TestCatalogGenreFilter(t *testing.T) {
	p := NewCatalogProvider(testCatalog())

	movies, err := p.GetRecommendations(context.Background(), &cinebridge.RecommendationRequest{
		Genres: []string{"drama"},
	})

	require.NoError(t, err)
	titles := titlesOf(movies)
	assert.Equal(t, []string{"A", "B", "D"}, titles, "genre match is case-insensitive")
}

func TestCatalogRangeFilters(t *testing.T) {
	p := NewCatalogProvider(testCatalog())

	movies, err := p.GetRecommendations(context.Background(), &cinebridge.RecommendationRequest{
		Genres:      []string{"drama"},
		Runtime:     &cinebridge.RuntimeRange{Min: 90, Max: 120},
		ReleaseYear: &cinebridge.YearRange{From: 2012, To: 2023},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, titlesOf(movies))
}

func TestCatalogLimit(t *testing.T) {
	p := NewCatalogProvider(testCatalog())

	movies, err := p.GetRecommendations(context.Background(), &cinebridge.RecommendationRequest{
		Genres: []string{"drama"},
		Limit:  2,
	})

	require.NoError(t, err)
	assert.Len(t, movies, 2)
}

func TestCatalogBuiltinDefault(t *testing.T) {
	p := NewCatalogProvider(nil)

	movies, err := p.GetRecommendations(context.Background(), &cinebridge.RecommendationRequest{
		Genres: []string{"drama"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, movies, "built-in catalog serves drama")
}

func TestCatalogStreamOrder(t *testing.T) {
	p := NewCatalogProvider(testCatalog())

	source, err := p.GetRecommendationsStream(context.Background(), &cinebridge.RecommendationRequest{
		Genres: []string{"comedy"},
	})
	require.NoError(t, err)

	var events []cinebridge.StreamEvent
	for ev := range source {
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, cinebridge.EventText, events[0].Type, "intro text first")
	assert.Equal(t, cinebridge.EventMovie, events[1].Type)
	assert.Equal(t, "C", events[1].Movie.Title)
}

func TestCatalogStreamHonorsCancellation(t *testing.T) {
	p := NewCatalogProvider(testCatalog())
	ctx, cancel := context.WithCancel(context.Background())

	source, err := p.GetRecommendationsStream(ctx, &cinebridge.RecommendationRequest{
		Genres: []string{"drama"},
	})
	require.NoError(t, err)

	// Read one event, abandon the rest; the producer must exit on cancel.
	<-source
	cancel()

	for range source {
		// drain whatever was already buffered
	}
}

func titlesOf(movies []cinebridge.MovieRecord) []string {
	titles := make([]string, 0, len(movies))
	for _, m := range movies {
		titles = append(titles, m.Title)
	}
	return titles
}
