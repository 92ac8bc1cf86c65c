// Package serp is a client for the SerpAPI web search service, used to
// look up public social profiles for a business.
package serp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geoleads/lead-engine/internal/resilience"
)

const defaultBaseURL = "https://serpapi.com"

// Client runs web searches and returns organic results.
type Client interface {
	Search(ctx context.Context, query, country string) ([]Result, error)
}

// Result is one organic search hit.
type Result struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search runs one query, localized to the given country code, and returns
// the organic results in ranking order.
func (c *httpClient) Search(ctx context.Context, query, country string) ([]Result, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("q", query)
	q.Set("num", "10")
	if country != "" {
		q.Set("gl", country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serp: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serp: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serp: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("serp: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.Transient(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var env struct {
		OrganicResults []Result `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "serp: unmarshal response")
	}
	return env.OrganicResults, nil
}
