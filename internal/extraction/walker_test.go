package extraction

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoleads/lead-engine/internal/config"
	"github.com/geoleads/lead-engine/pkg/places"
)

// fakePlaces scripts search and detail responses by key.
type fakePlaces struct {
	nearby  map[string][]places.Place
	text    map[string][]places.Place
	details map[string]*places.PlaceDetails

	nearbyCalls []string
	textCalls   []string
}

func (f *fakePlaces) NearbySearch(_ context.Context, req places.NearbyRequest) (*places.SearchResponse, error) {
	key := fmt.Sprintf("%.4f,%.4f/%s", req.Lat, req.Lng, req.Keyword)
	f.nearbyCalls = append(f.nearbyCalls, key)
	return &places.SearchResponse{Places: f.nearby[key]}, nil
}

func (f *fakePlaces) TextSearch(_ context.Context, query, _ string) (*places.SearchResponse, error) {
	f.textCalls = append(f.textCalls, query)
	return &places.SearchResponse{Places: f.text[query]}, nil
}

func (f *fakePlaces) Details(_ context.Context, placeID string) (*places.PlaceDetails, error) {
	return f.details[placeID], nil
}

func testCfg() config.ExtractionConfig {
	return config.ExtractionConfig{MaxCandidates: 100, RateLimit: 1000, PageTokenDelay: 0}
}

func TestSearchPoints(t *testing.T) {
	pts := SearchPoints(51.5074, -0.1278, 1000)

	require.Len(t, pts, 9)
	assert.Equal(t, Point{51.5074, -0.1278}, pts[0])

	// Offsets are half the radius, so roughly 0.0045 degrees of latitude.
	assert.InDelta(t, 51.5074+0.00449, pts[1].Lat, 0.0001)
	assert.Equal(t, -0.1278, pts[1].Lng)

	// Longitude offset is stretched by latitude.
	assert.Greater(t, pts[3].Lng-(-0.1278), 0.00449)
}

func TestCollectCoordinates_DedupAcrossPoints(t *testing.T) {
	shared := places.Place{PlaceID: "ChIJ-shared", Name: "Corner Cafe"}
	f := &fakePlaces{nearby: map[string][]places.Place{}}
	for i, pt := range SearchPoints(51.5074, -0.1278, 1000) {
		key := fmt.Sprintf("%.4f,%.4f/cafe", pt.Lat, pt.Lng)
		f.nearby[key] = []places.Place{
			shared,
			{PlaceID: fmt.Sprintf("ChIJ-%d", i), Name: fmt.Sprintf("Cafe %d", i)},
		}
	}

	w := NewWalker(f, testCfg())
	got, err := w.CollectCoordinates(context.Background(), 51.5074, -0.1278, 1000, []string{"cafe"})

	require.NoError(t, err)
	// One shared place plus one unique place per grid point.
	assert.Len(t, got, 10)
	assert.Len(t, f.nearbyCalls, 9)
	assert.Equal(t, "ChIJ-shared", got[0].PlaceID)
}

func TestCollectCoordinates_CandidateCap(t *testing.T) {
	f := &fakePlaces{nearby: map[string][]places.Place{}}
	for _, pt := range SearchPoints(51.5074, -0.1278, 1000) {
		key := fmt.Sprintf("%.4f,%.4f/restaurant", pt.Lat, pt.Lng)
		var page []places.Place
		for i := 0; i < 40; i++ {
			page = append(page, places.Place{PlaceID: fmt.Sprintf("%s-%d", key, i), Name: "R"})
		}
		f.nearby[key] = page
	}

	cfg := testCfg()
	cfg.MaxCandidates = 100
	w := NewWalker(f, cfg)
	got, err := w.CollectCoordinates(context.Background(), 51.5074, -0.1278, 1000, []string{"restaurant"})

	require.NoError(t, err)
	assert.Len(t, got, 100)
	// Capped collection stops issuing searches early.
	assert.Less(t, len(f.nearbyCalls), 9)
}

func TestCollectCity_DirectionalQueries(t *testing.T) {
	f := &fakePlaces{text: map[string][]places.Place{
		"bar in London, UK":          {{PlaceID: "ChIJ-1", Name: "The Anchor"}},
		"bar in north of London, UK": {{PlaceID: "ChIJ-2", Name: "North Star"}},
	}}

	w := NewWalker(f, testCfg())
	got, err := w.CollectCity(context.Background(), "London", "UK", []string{"bar"})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "bar", got[0].Category)
	require.Len(t, f.textCalls, 9)
	assert.Equal(t, "bar in London, UK", f.textCalls[0])
	assert.Contains(t, f.textCalls, "bar in southwest of London, UK")
}

func TestCollectCoordinates_ZeroResults(t *testing.T) {
	f := &fakePlaces{nearby: map[string][]places.Place{}}

	w := NewWalker(f, testCfg())
	got, err := w.CollectCoordinates(context.Background(), 0, 0, 100, []string{"florist"})

	require.NoError(t, err)
	assert.Empty(t, got)
}
