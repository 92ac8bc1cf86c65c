package snov

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainEmails(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth/access_token":
			tokenCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "test-id", r.PostForm.Get("client_id"))
			w.Write([]byte(`{"access_token": "tok-abc", "expires_in": 3600}`))
		case "/v2/domain-emails-with-info":
			assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
			assert.Equal(t, "goldenfork.example", r.URL.Query().Get("domain"))
			w.Write([]byte(`{"emails": [{"email": "info@goldenfork.example", "status": "verified"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient("test-id", "test-secret", WithBaseURL(srv.URL))

	emails, err := c.DomainEmails(context.Background(), "goldenfork.example")
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "info@goldenfork.example", emails[0].Email)

	// Second call reuses the cached token.
	_, err = c.DomainEmails(context.Background(), "goldenfork.example")
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)
}

func TestDomainEmails_TokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-id", "bad-secret", WithBaseURL(srv.URL))
	_, err := c.DomainEmails(context.Background(), "goldenfork.example")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
