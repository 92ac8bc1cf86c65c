package enrich

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geoleads/lead-engine/pkg/serp"
)

// lookupTimeout bounds a single profile search.
const lookupTimeout = 10 * time.Second

// SocialEnricher finds public LinkedIn and Facebook profiles for a business
// through a web search API.
type SocialEnricher struct {
	client  serp.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewSocialEnricher creates a SocialEnricher. Lookups are paced to one per
// second to stay under the search API's rate limits.
func NewSocialEnricher(client serp.Client) *SocialEnricher {
	return &SocialEnricher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		log:     zap.L().With(zap.String("component", "social")),
	}
}

// LinkedInProfile searches for a management profile at the business. Returns
// an empty string when nothing ranks.
func (s *SocialEnricher) LinkedInProfile(ctx context.Context, businessName string) (string, error) {
	query := searchTokens(businessName) + "+General+Manager+Linkedin site:linkedin.com/in/ OR site:linkedin.com/pub/"
	results, err := s.lookup(ctx, query, "uk")
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].Link, nil
}

// FacebookPage searches for the business's Facebook page, skipping the
// platform's own utility pages that rank for almost any query.
func (s *SocialEnricher) FacebookPage(ctx context.Context, businessName string) (string, error) {
	results, err := s.lookup(ctx, searchTokens(businessName)+"+Facebook", "us")
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if facebookPage(r.Link) {
			return r.Link, nil
		}
	}
	return "", nil
}

// ItemBudget is the worst-case wall-clock cost of enriching one lead: both
// lookups timing out plus the pacing interval between them.
func (s *SocialEnricher) ItemBudget() time.Duration {
	return 2*lookupTimeout + time.Second
}

func (s *SocialEnricher) lookup(ctx context.Context, query, country string) ([]serp.Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: rate wait")
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	return s.client.Search(ctx, query, country)
}

// searchTokens converts a business name into plus-joined query tokens,
// dropping punctuation.
func searchTokens(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), "+")
}

// facebookPage reports whether the URL looks like an actual business page
// rather than one of Facebook's own surfaces.
func facebookPage(u string) bool {
	if !strings.Contains(u, "facebook.com/") {
		return false
	}
	for _, p := range []string{"/search", "/login", "/help", "/privacy", "/terms"} {
		if strings.Contains(u, "facebook.com"+p) {
			return false
		}
	}
	return true
}
