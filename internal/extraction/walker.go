// Package extraction walks the map provider's search surface around an
// origin and turns the places it finds into leads.
package extraction

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geoleads/lead-engine/internal/config"
	"github.com/geoleads/lead-engine/internal/resilience"
	"github.com/geoleads/lead-engine/pkg/places"
)

// metersPerDegreeLat is the approximate north-south length of one degree
// of latitude.
const metersPerDegreeLat = 111320.0

// directions are the compass prefixes used to widen city text searches.
var directions = []string{
	"", "north", "south", "east", "west",
	"northeast", "northwest", "southeast", "southwest",
}

// Candidate is a place discovered during the collection phase, before any
// detail fetch. The working set persisted between chunks is a slice of
// these.
type Candidate struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Point is one search origin in the grid.
type Point struct {
	Lat float64
	Lng float64
}

// Walker collects place candidates around an origin and hydrates them into
// full details.
type Walker struct {
	client  places.Client
	limiter *rate.Limiter
	cfg     config.ExtractionConfig
	retry   resilience.RetryConfig
	log     *zap.Logger
}

// NewWalker creates a Walker.
func NewWalker(client places.Client, cfg config.ExtractionConfig) *Walker {
	w := &Walker{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cfg:     cfg,
		retry:   resilience.DefaultRetryConfig(),
		log:     zap.L().With(zap.String("component", "extraction")),
	}
	w.retry.OnRetry = func(attempt int, err error) {
		w.log.Warn("retrying place API call", zap.Int("attempt", attempt), zap.Error(err))
	}
	return w
}

// SearchPoints returns the grid of origins covered for a coordinate search:
// the center plus eight compass points offset by half the radius.
func SearchPoints(lat, lng float64, radiusM int) []Point {
	half := float64(radiusM) / 2
	dLat := half / metersPerDegreeLat
	dLng := half / (metersPerDegreeLat * math.Cos(lat*math.Pi/180))

	return []Point{
		{lat, lng},
		{lat + dLat, lng},
		{lat - dLat, lng},
		{lat, lng + dLng},
		{lat, lng - dLng},
		{lat + dLat, lng + dLng},
		{lat + dLat, lng - dLng},
		{lat - dLat, lng + dLng},
		{lat - dLat, lng - dLng},
	}
}

// CollectCoordinates runs a nearby search per grid point and category,
// deduplicating by place id. Collection stops once the candidate cap is
// reached.
func (w *Walker) CollectCoordinates(ctx context.Context, lat, lng float64, radiusM int, categories []string) ([]Candidate, error) {
	seen := make(map[string]struct{})
	var out []Candidate

	for _, pt := range SearchPoints(lat, lng, radiusM) {
		for _, cat := range categories {
			if len(out) >= w.cfg.MaxCandidates {
				return out, nil
			}
			page, err := w.nearbyPages(ctx, pt, radiusM, cat)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				// One failed grid point must not sink the walk.
				w.log.Warn("nearby search failed",
					zap.Float64("lat", pt.Lat),
					zap.Float64("lng", pt.Lng),
					zap.String("category", cat),
					zap.Error(err))
				continue
			}
			out = w.merge(out, page, seen, cat)
		}
	}
	return out, nil
}

// CollectCity runs a text search per directional variant and category,
// deduplicating by place id.
func (w *Walker) CollectCity(ctx context.Context, city, country string, categories []string) ([]Candidate, error) {
	seen := make(map[string]struct{})
	var out []Candidate

	for _, dir := range directions {
		area := city
		if dir != "" {
			area = dir + " of " + city
		}
		for _, cat := range categories {
			if len(out) >= w.cfg.MaxCandidates {
				return out, nil
			}
			query := fmt.Sprintf("%s in %s, %s", cat, area, country)
			page, err := w.textPages(ctx, query)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				w.log.Warn("text search failed",
					zap.String("query", query),
					zap.Error(err))
				continue
			}
			out = w.merge(out, page, seen, cat)
		}
	}
	return out, nil
}

// Fetch hydrates a candidate into a full place detail. A nil result means
// the provider dropped the place since collection.
func (w *Walker) Fetch(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extraction: rate wait")
	}
	return resilience.DoVal(ctx, w.retry, func(ctx context.Context) (*places.PlaceDetails, error) {
		return w.client.Details(ctx, placeID)
	})
}

func (w *Walker) merge(out []Candidate, page []places.Place, seen map[string]struct{}, category string) []Candidate {
	for _, p := range page {
		if p.PlaceID == "" {
			continue
		}
		if _, dup := seen[p.PlaceID]; dup {
			continue
		}
		seen[p.PlaceID] = struct{}{}
		out = append(out, Candidate{PlaceID: p.PlaceID, Name: p.Name, Category: category})
		if len(out) >= w.cfg.MaxCandidates {
			break
		}
	}
	return out
}

// nearbyPages drains all result pages for one point and category. The
// provider needs a short pause before a page token becomes valid.
func (w *Walker) nearbyPages(ctx context.Context, pt Point, radiusM int, keyword string) ([]places.Place, error) {
	var all []places.Place
	token := ""
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extraction: rate wait")
		}
		resp, err := resilience.DoVal(ctx, w.retry, func(ctx context.Context) (*places.SearchResponse, error) {
			return w.client.NearbySearch(ctx, places.NearbyRequest{
				Lat: pt.Lat, Lng: pt.Lng, RadiusM: radiusM,
				Keyword: keyword, PageToken: token,
			})
		})
		if err != nil {
			return nil, eris.Wrapf(err, "extraction: nearby search %q at %.5f,%.5f", keyword, pt.Lat, pt.Lng)
		}
		all = append(all, resp.Places...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		token = resp.NextPageToken
		if err := sleep(ctx, time.Duration(w.cfg.PageTokenDelay)*time.Second); err != nil {
			return nil, err
		}
	}
}

func (w *Walker) textPages(ctx context.Context, query string) ([]places.Place, error) {
	var all []places.Place
	token := ""
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extraction: rate wait")
		}
		resp, err := resilience.DoVal(ctx, w.retry, func(ctx context.Context) (*places.SearchResponse, error) {
			return w.client.TextSearch(ctx, query, token)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "extraction: text search %q", query)
		}
		all = append(all, resp.Places...)
		if resp.NextPageToken == "" {
			return all, nil
		}
		token = resp.NextPageToken
		if err := sleep(ctx, time.Duration(w.cfg.PageTokenDelay)*time.Second); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "extraction: wait cancelled")
	case <-time.After(d):
		return nil
	}
}

// CoordinateQuery renders the search history label for a coordinate job.
func CoordinateQuery(coords string, radiusM int, categories []string) string {
	return fmt.Sprintf("%s r=%d [%s]", coords, radiusM, strings.Join(categories, ", "))
}

// CityQuery renders the search history label for a city job.
func CityQuery(city, country string, categories []string) string {
	return fmt.Sprintf("%s, %s [%s]", city, country, strings.Join(categories, ", "))
}
