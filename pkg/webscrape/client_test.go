package webscrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeEmails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://goldenfork.example", req["website"])
		assert.Equal(t, "The Golden Fork", req["businessName"])

		w.Write([]byte(`{"emails": ["info@goldenfork.example", "not_found", "no email found", "contact us", "  ", "bookings@goldenfork.example"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	emails, err := c.ScrapeEmails(context.Background(), "https://goldenfork.example", "The Golden Fork")

	require.NoError(t, err)
	assert.Equal(t, []string{"info@goldenfork.example", "bookings@goldenfork.example"}, emails)
}

func TestScrapeEmails_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"emails": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	emails, err := c.ScrapeEmails(context.Background(), "https://nowhere.example", "Nowhere")

	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestScrapeEmails_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "crawler crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	_, err := c.ScrapeEmails(context.Background(), "https://goldenfork.example", "The Golden Fork")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
