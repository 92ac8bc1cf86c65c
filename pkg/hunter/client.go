// Package hunter is a client for the Hunter email discovery and
// verification API.
package hunter

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

const defaultBaseURL = "https://api.hunter.io/v2"

// Client looks up and verifies email addresses by domain.
type Client interface {
	DomainSearch(ctx context.Context, domain string) (*DomainResult, error)
	Verify(ctx context.Context, email string) (*Verification, error)
}

// Email is a single address found for a domain.
type Email struct {
	Value      string `json:"value"`
	Type       string `json:"type"`
	Confidence int    `json:"confidence"`
}

// DomainResult holds the addresses discovered for a domain.
type DomainResult struct {
	Domain string  `json:"domain"`
	Emails []Email `json:"emails"`
}

// Verification is the deliverability judgement for one address.
type Verification struct {
	Result string `json:"result"`
	Score  int    `json:"score"`
	Email  string `json:"email"`
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

// NewClient creates a Hunter API client.
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

// DomainSearch lists addresses Hunter knows for the domain, most confident
// first.
func (c *httpClient) DomainSearch(ctx context.Context, domain string) (*DomainResult, error) {
	q := url.Values{}
	q.Set("domain", domain)

	var env struct {
		Data DomainResult `json:"data"`
	}
	if err := c.get(ctx, "/domain-search", q, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Verify checks the deliverability of a single address.
func (c *httpClient) Verify(ctx context.Context, email string) (*Verification, error) {
	q := url.Values{}
	q.Set("email", email)

	var env struct {
		Data Verification `json:"data"`
	}
	if err := c.get(ctx, "/email-verifier", q, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, dest any) error {
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "hunter: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "hunter: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "hunter: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("hunter: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.Transient(statusErr, resp.StatusCode)
		}
		return statusErr
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return eris.Wrap(err, "hunter: unmarshal response")
	}
	return nil
}
