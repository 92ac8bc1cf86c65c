package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoleads/lead-engine/pkg/serp"
)

// fakeSerp records queries and serves scripted results per query.
type fakeSerp struct {
	results map[string][]serp.Result
	err     error

	queries   []string
	countries []string
}

func (f *fakeSerp) Search(_ context.Context, query, country string) ([]serp.Result, error) {
	f.queries = append(f.queries, query)
	f.countries = append(f.countries, country)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func TestLinkedInProfile(t *testing.T) {
	wantQuery := "Roisa+Hostal+Boutique+General+Manager+Linkedin site:linkedin.com/in/ OR site:linkedin.com/pub/"
	client := &fakeSerp{results: map[string][]serp.Result{
		wantQuery: {{Title: "Jane Doe - General Manager", Link: "https://linkedin.com/in/jane-doe"}},
	}}
	s := NewSocialEnricher(client)

	url, err := s.LinkedInProfile(context.Background(), "Roisa Hostal Boutique!")

	require.NoError(t, err)
	assert.Equal(t, "https://linkedin.com/in/jane-doe", url)
	assert.Equal(t, []string{wantQuery}, client.queries)
	assert.Equal(t, []string{"uk"}, client.countries)
}

func TestLinkedInProfile_NoResults(t *testing.T) {
	s := NewSocialEnricher(&fakeSerp{})

	url, err := s.LinkedInProfile(context.Background(), "Nowhere Inn")

	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFacebookPage_SkipsPlatformPages(t *testing.T) {
	client := &fakeSerp{results: map[string][]serp.Result{
		"Golden+Fork+Facebook": {
			{Link: "https://facebook.com/login/?next=goldenfork"},
			{Link: "https://facebook.com/search/top?q=golden+fork"},
			{Link: "https://reviews.example/goldenfork"},
			{Link: "https://facebook.com/goldenforklondon"},
		},
	}}
	s := NewSocialEnricher(client)

	url, err := s.FacebookPage(context.Background(), "Golden Fork")

	require.NoError(t, err)
	assert.Equal(t, "https://facebook.com/goldenforklondon", url)
	assert.Equal(t, []string{"us"}, client.countries)
}

func TestSearchTokens(t *testing.T) {
	assert.Equal(t, "Roisa+Hostal+Boutique", searchTokens("  Roisa Hostal Boutique "))
	assert.Equal(t, "Joes+Cafe+Bar", searchTokens("Joe's Cafe & Bar"))
	assert.Equal(t, "", searchTokens("!!!"))
}

func TestFacebookPageFilter(t *testing.T) {
	assert.True(t, facebookPage("https://facebook.com/goldenfork"))
	assert.False(t, facebookPage("https://facebook.com/login"))
	assert.False(t, facebookPage("https://facebook.com/help/123"))
	assert.False(t, facebookPage("https://example.com/facebook"))
}

func TestSocialItemBudget(t *testing.T) {
	s := NewSocialEnricher(&fakeSerp{})
	assert.Equal(t, 21*time.Second, s.ItemBudget())
}
