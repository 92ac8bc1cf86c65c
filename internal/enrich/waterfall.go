// Package enrich finds and verifies email addresses for leads by running a
// configurable chain of providers.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/config"
	"github.com/geoleads/lead-engine/internal/lead"
	"github.com/geoleads/lead-engine/internal/resilience"
)

// validScoreFloor is the verification score at which an address counts as
// deliverable.
const validScoreFloor = 80

// Finding is a provider's raw answer for one lead. Score is set only when
// the provider verified the address.
type Finding struct {
	Email string
	Score *int
}

// Result is the waterfall's outcome for one lead.
type Result struct {
	Email  string
	Status string
	Source string
}

// Provider attempts to find an email address for a lead.
type Provider interface {
	Name() string
	Find(ctx context.Context, l *lead.Lead) (*Finding, error)
}

// Waterfall tries providers in order until one yields a usable address.
// Each provider sits behind its own circuit breaker so a dead upstream
// stops costing its timeout on every lead.
type Waterfall struct {
	providers []Provider
	breakers  map[string]*resilience.Breaker
	cfg       config.EnrichConfig
	log       *zap.Logger
}

// NewWaterfall creates a waterfall over the given provider chain.
func NewWaterfall(providers []Provider, cfg config.EnrichConfig) *Waterfall {
	breakers := make(map[string]*resilience.Breaker, len(providers))
	for _, p := range providers {
		breakers[p.Name()] = resilience.NewBreaker(5, 30*time.Second)
	}
	return &Waterfall{
		providers: providers,
		breakers:  breakers,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "waterfall")),
	}
}

// Run enriches a single lead. Provider failures and empty answers fall
// through to the next provider; a lead without a website short-circuits to
// the not-found sentinel since every provider keys off the domain.
func (w *Waterfall) Run(ctx context.Context, l *lead.Lead) Result {
	if l.Website == "" {
		return notFound()
	}

	for i, p := range w.providers {
		if i > 0 {
			if err := wait(ctx, time.Duration(w.cfg.InterProviderWait)*time.Second); err != nil {
				return notFound()
			}
		}

		finding, err := w.attempt(ctx, p, l)
		if err != nil {
			w.log.Warn("provider attempt failed",
				zap.String("provider", p.Name()),
				zap.String("lead_id", l.ID),
				zap.Error(err))
			continue
		}
		if finding == nil || finding.Email == "" {
			continue
		}

		return Result{
			Email:  finding.Email,
			Status: classify(finding),
			Source: p.Name(),
		}
	}
	return notFound()
}

// ItemBudget is the worst-case wall-clock cost of enriching one lead: every
// provider timing out plus the waits between them. The scheduler uses it to
// decide whether another lead still fits in the chunk.
func (w *Waterfall) ItemBudget() time.Duration {
	n := len(w.providers)
	if n == 0 {
		return 0
	}
	timeout := time.Duration(w.cfg.ProviderTimeout) * time.Second
	pause := time.Duration(w.cfg.InterProviderWait) * time.Second
	return time.Duration(n)*timeout + time.Duration(n-1)*pause
}

// attempt runs one provider under its own deadline so a hung upstream
// cannot eat the chunk budget.
func (w *Waterfall) attempt(ctx context.Context, p Provider, l *lead.Lead) (*Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.ProviderTimeout)*time.Second)
	defer cancel()
	return resilience.Execute(ctx, w.breakers[p.Name()], func(ctx context.Context) (*Finding, error) {
		return p.Find(ctx, l)
	})
}

// classify maps a finding onto an email status. Verified addresses split on
// the score floor; unverified ones stay Unverified.
func classify(f *Finding) string {
	switch {
	case f.Score == nil:
		return lead.EmailUnverified
	case *f.Score >= validScoreFloor:
		return lead.EmailValid
	default:
		return lead.EmailInvalid
	}
}

func notFound() Result {
	return Result{Email: lead.EmailNotFound, Status: lead.EmailNotFound}
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "enrich: wait cancelled")
	case <-time.After(d):
		return nil
	}
}
