package enrich

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/geoleads/lead-engine/internal/config"
	"github.com/geoleads/lead-engine/internal/lead"
	"github.com/geoleads/lead-engine/pkg/hunter"
	"github.com/geoleads/lead-engine/pkg/snov"
	"github.com/geoleads/lead-engine/pkg/webscrape"
)

// defaultChain is the provider order used when no waterfall file exists.
var defaultChain = []string{"webscrape", "hunter", "snov"}

// chainFile is the on-disk waterfall definition.
type chainFile struct {
	Providers []string `yaml:"providers"`
}

// LoadChain reads the provider order from a YAML file. A missing file
// yields the default order.
func LoadChain(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultChain, nil
		}
		return nil, eris.Wrapf(err, "enrich: read chain %s", path)
	}

	var cf chainFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, eris.Wrapf(err, "enrich: parse chain %s", path)
	}
	if len(cf.Providers) == 0 {
		return defaultChain, nil
	}
	return cf.Providers, nil
}

// Clients bundles the upstream clients the provider adapters wrap.
type Clients struct {
	Webscrape webscrape.Client
	Hunter    hunter.Client
	Snov      snov.Client
}

// BuildChain resolves provider names into adapters. Unknown names are an
// error so config typos surface at startup.
func BuildChain(names []string, c Clients) ([]Provider, error) {
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case "webscrape":
			out = append(out, &webscrapeProvider{client: c.Webscrape})
		case "hunter":
			out = append(out, &hunterProvider{client: c.Hunter})
		case "snov":
			out = append(out, &snovProvider{client: c.Snov})
		default:
			return nil, eris.Errorf("enrich: unknown provider %q", name)
		}
	}
	return out, nil
}

// New wires the full waterfall from config and clients.
func New(cfg config.EnrichConfig, c Clients) (*Waterfall, error) {
	names, err := LoadChain(cfg.WaterfallPath)
	if err != nil {
		return nil, err
	}
	providers, err := BuildChain(names, c)
	if err != nil {
		return nil, err
	}
	return NewWaterfall(providers, cfg), nil
}

// domainOf extracts the bare domain from a website URL.
func domainOf(website string) string {
	s := website
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

type webscrapeProvider struct {
	client webscrape.Client
}

func (p *webscrapeProvider) Name() string { return "webscrape" }

func (p *webscrapeProvider) Find(ctx context.Context, l *lead.Lead) (*Finding, error) {
	emails, err := p.client.ScrapeEmails(ctx, l.Website, l.Name)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	return &Finding{Email: emails[0]}, nil
}

type hunterProvider struct {
	client hunter.Client
}

func (p *hunterProvider) Name() string { return "hunter" }

// Find looks up the lead's domain and verifies the most confident address.
func (p *hunterProvider) Find(ctx context.Context, l *lead.Lead) (*Finding, error) {
	domain := domainOf(l.Website)
	if domain == "" {
		return nil, nil
	}

	res, err := p.client.DomainSearch(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(res.Emails) == 0 {
		return nil, nil
	}

	best := res.Emails[0]
	for _, e := range res.Emails[1:] {
		if e.Confidence > best.Confidence {
			best = e
		}
	}

	v, err := p.client.Verify(ctx, best.Value)
	if err != nil {
		// The address is still usable, just unscored.
		return &Finding{Email: best.Value}, nil
	}
	return &Finding{Email: best.Value, Score: &v.Score}, nil
}

type snovProvider struct {
	client snov.Client
}

func (p *snovProvider) Name() string { return "snov" }

func (p *snovProvider) Find(ctx context.Context, l *lead.Lead) (*Finding, error) {
	domain := domainOf(l.Website)
	if domain == "" {
		return nil, nil
	}

	emails, err := p.client.DomainEmails(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	return &Finding{Email: emails[0].Email}, nil
}
