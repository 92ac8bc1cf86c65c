package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoleads/lead-engine/internal/resilience"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "Golden+Fork+Facebook", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		assert.Equal(t, "us", r.URL.Query().Get("gl"))

		w.Write([]byte(`{"organic_results": [
			{"title": "Golden Fork | Facebook", "link": "https://facebook.com/goldenfork"},
			{"title": "Golden Fork reviews", "link": "https://reviews.example/goldenfork"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Golden+Fork+Facebook", "us")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://facebook.com/goldenfork", results[0].Link)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "nothing", "")

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "anything", "uk")

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
