// Package job provides the durable job ledger: the persisted record of a
// unit of chunked work, its working set, and client-facing progress
// projection.
package job

import (
	"time"

	"github.com/rotisserie/eris"
)

// Type identifies the kind of work a job performs.
type Type string

const (
	TypeCoordinateExtraction Type = "coordinate-extraction"
	TypeCityExtraction       Type = "city-extraction"
	TypeEnrichment           Type = "enrichment"
	TypeSocialEnrichment     Type = "social-enrichment"
)

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCoordinateExtraction, TypeCityExtraction, TypeEnrichment, TypeSocialEnrichment:
		return Type(s), nil
	default:
		return "", eris.Errorf("job: unknown type %q", s)
	}
}

// Extraction reports whether the type discovers new leads from the map
// provider. Only extraction jobs own a search history record.
func (t Type) Extraction() bool {
	return t == TypeCoordinateExtraction || t == TypeCityExtraction
}

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Params holds the job-type-specific input parameters. Derived state (the
// cached candidate list) lives in the working set table, not here.
type Params struct {
	SearchID     string   `json:"search_id,omitempty"`
	Coordinates  string   `json:"coordinates,omitempty"` // "lat,lng"
	RadiusMeters int      `json:"radius_meters,omitempty"`
	City         string   `json:"city,omitempty"`
	Country      string   `json:"country,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	CreatedBy    string   `json:"created_by,omitempty"`
	LeadIDs      []string `json:"lead_ids,omitempty"`
}

// Validate checks that the parameters required by the given job type are
// present. A violation is a configuration error: the job fails on chunk 0.
func (p Params) Validate(t Type) error {
	switch t {
	case TypeCoordinateExtraction:
		if p.Coordinates == "" {
			return eris.New("job: coordinates are required")
		}
		if p.RadiusMeters <= 0 {
			return eris.New("job: radius_meters must be positive")
		}
		if len(p.Categories) == 0 {
			return eris.New("job: at least one category is required")
		}
	case TypeCityExtraction:
		if p.City == "" {
			return eris.New("job: city is required")
		}
		if p.Country == "" {
			return eris.New("job: country is required")
		}
		if len(p.Categories) == 0 {
			return eris.New("job: at least one category is required")
		}
	case TypeEnrichment, TypeSocialEnrichment:
		if len(p.LeadIDs) == 0 {
			return eris.New("job: lead_ids are required")
		}
	default:
		return eris.Errorf("job: unknown type %q", t)
	}
	return nil
}

// EstimateDuration guesses the wall-clock seconds a job will take, for the
// dashboard's queue view. Rough by design: extraction scales with the
// category count, per-lead jobs with the id count, both capped.
func EstimateDuration(t Type, p Params) int {
	capped := func(v, limit int) int {
		if v > limit {
			return limit
		}
		return v
	}
	switch t {
	case TypeCoordinateExtraction:
		n := len(p.Categories)
		if n == 0 {
			n = 1
		}
		return capped(n*60, 600)
	case TypeCityExtraction:
		return 300
	case TypeEnrichment, TypeSocialEnrichment:
		n := len(p.LeadIDs)
		if n == 0 {
			n = 1
		}
		return capped(n*3, 900)
	default:
		return 60
	}
}

// DefaultPriority orders queued jobs: enrichment of existing leads beats
// discovering new ones.
func DefaultPriority(t Type) int {
	switch t {
	case TypeEnrichment, TypeSocialEnrichment:
		return 3
	case TypeCoordinateExtraction:
		return 2
	default:
		return 1
	}
}

// Job is a row in the jobs table.
type Job struct {
	ID                string     `json:"id"`
	Type              Type       `json:"type"`
	Params            Params     `json:"params"`
	Status            Status     `json:"status"`
	Progress          int        `json:"progress"`
	CurrentMessage    string     `json:"current_message"`
	Error             string     `json:"error,omitempty"`
	CancelRequested   bool       `json:"cancel_requested"`
	ProcessedCount    int        `json:"processed_count"`
	TotalCount        int        `json:"total_count"`
	Priority          int        `json:"priority"`
	EstimatedDuration int        `json:"estimated_duration"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Version           int        `json:"-"`
}
