// Package snov is a client for the Snov.io email discovery API.
package snov

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.snov.io"

// Client discovers email addresses by domain.
type Client interface {
	DomainEmails(ctx context.Context, domain string) ([]Email, error)
}

// Email is a single address found for a domain.
type Email struct {
	Email  string `json:"email"`
	Status string `json:"status"`
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
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Snov API client using client-credentials auth.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// token returns a valid access token, refreshing via the client-credentials
// grant when the cached one has expired.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "snov: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "snov: send token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "snov: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("snov: token status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "snov: unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.New("snov: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).Add(-time.Minute)
	return c.accessToken, nil
}

// DomainEmails lists the addresses Snov knows for the domain.
func (c *httpClient) DomainEmails(ctx context.Context, domain string) ([]Email, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("domain", domain)
	q.Set("type", "all")
	q.Set("limit", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/domain-emails-with-info?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "snov: create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "snov: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "snov: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("snov: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var env struct {
		Emails []Email `json:"emails"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "snov: unmarshal response")
	}
	return env.Emails, nil
}
