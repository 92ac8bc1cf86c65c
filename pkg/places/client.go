// Package places is a client for the mapping provider's place search and
// detail endpoints.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geoleads/lead-engine/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Client performs place search and detail operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbyRequest) (*SearchResponse, error)
	TextSearch(ctx context.Context, query, pageToken string) (*SearchResponse, error)
	Details(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// NearbyRequest parameterizes a nearby search.
type NearbyRequest struct {
	Lat       float64
	Lng       float64
	RadiusM   int
	Keyword   string
	PageToken string
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geometry holds a place's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// Place is a search result entry.
type Place struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity,omitempty"`
	Geometry Geometry `json:"geometry"`
}

// SearchResponse is the page of results from a search call.
type SearchResponse struct {
	Places        []Place
	NextPageToken string
}

// AddressComponent is one structured address part on a place detail.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// PlaceDetails is the full record for a single place.
type PlaceDetails struct {
	PlaceID              string             `json:"place_id"`
	Name                 string             `json:"name"`
	FormattedAddress     string             `json:"formatted_address,omitempty"`
	Vicinity             string             `json:"vicinity,omitempty"`
	Website              string             `json:"website,omitempty"`
	FormattedPhoneNumber string             `json:"formatted_phone_number,omitempty"`
	Geometry             Geometry           `json:"geometry"`
	AddressComponents    []AddressComponent `json:"address_components"`
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

// NewClient creates a places API client.
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

// searchEnvelope is the provider's search response wire format.
type searchEnvelope struct {
	Status        string  `json:"status"`
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token"`
	ErrorMessage  string  `json:"error_message"`
}

// detailEnvelope is the provider's detail response wire format.
type detailEnvelope struct {
	Status       string        `json:"status"`
	Result       *PlaceDetails `json:"result"`
	ErrorMessage string        `json:"error_message"`
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbyRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", req.Lat, req.Lng))
	q.Set("radius", fmt.Sprintf("%d", req.RadiusM))
	q.Set("keyword", req.Keyword)
	if req.PageToken != "" {
		q.Set("pagetoken", req.PageToken)
	}
	return c.search(ctx, "/nearbysearch/json", q)
}

func (c *httpClient) TextSearch(ctx context.Context, query, pageToken string) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	if pageToken != "" {
		q.Set("pagetoken", pageToken)
	}
	return c.search(ctx, "/textsearch/json", q)
}

func (c *httpClient) search(ctx context.Context, path string, q url.Values) (*SearchResponse, error) {
	var env searchEnvelope
	if err := c.get(ctx, path, q, &env); err != nil {
		return nil, err
	}

	if env.Status != "OK" && env.Status != "ZERO_RESULTS" {
		return nil, eris.Errorf("places: search status %s: %s", env.Status, env.ErrorMessage)
	}

	return &SearchResponse{Places: env.Results, NextPageToken: env.NextPageToken}, nil
}

// Details fetches the full record for a place. Returns nil when the provider
// no longer knows the place id.
func (c *httpClient) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("language", "en")

	var env detailEnvelope
	if err := c.get(ctx, "/details/json", q, &env); err != nil {
		return nil, err
	}

	switch env.Status {
	case "OK":
		return env.Result, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, eris.Errorf("places: details status %s: %s", env.Status, env.ErrorMessage)
	}
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, dest any) error {
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.Transient(statusErr, resp.StatusCode)
		}
		return statusErr
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
