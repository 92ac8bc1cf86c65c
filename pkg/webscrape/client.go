// Package webscrape is a client for the in-house website scraping service
// that crawls a business site looking for contact addresses.
package webscrape

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client extracts contact emails from a business website.
type Client interface {
	ScrapeEmails(ctx context.Context, website, businessName string) ([]string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a scraping service client. The base URL and bearer
// token come from deployment config.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ScrapeEmails asks the scraping service to crawl the website. Placeholder
// values the scraper emits when it finds nothing are filtered out.
func (c *httpClient) ScrapeEmails(ctx context.Context, website, businessName string) ([]string, error) {
	payload, err := json.Marshal(map[string]string{
		"website":      website,
		"businessName": businessName,
	})
	if err != nil {
		return nil, eris.Wrap(err, "webscrape: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "webscrape: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "webscrape: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "webscrape: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("webscrape: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var env struct {
		Emails []string `json:"emails"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "webscrape: unmarshal response")
	}

	out := make([]string, 0, len(env.Emails))
	for _, e := range env.Emails {
		if e = strings.TrimSpace(e); usable(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// usable filters the placeholder strings the scraper emits instead of an
// address.
func usable(e string) bool {
	if e == "" || !strings.Contains(e, "@") {
		return false
	}
	switch strings.ToLower(e) {
	case "not_found", "not found", "no email found", "unknown":
		return false
	}
	return true
}
