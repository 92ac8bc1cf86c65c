// Package lead persists extracted business leads and the search records
// that originated them.
package lead

import (
	"strings"
	"time"
)

// Email status values carried on a lead. NotFound is the sentinel written
// when the provider waterfall exhausts without a usable address.
const (
	EmailValid      = "Valid"
	EmailInvalid    = "Invalid"
	EmailUnverified = "Unverified"
	EmailNotFound   = "not_found"
)

// Lead is a row in the leads table.
type Lead struct {
	ID           string     `json:"id"`
	ExternalID   string     `json:"external_id"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Location     string     `json:"location"`
	Website      string     `json:"website,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	City         string     `json:"city,omitempty"`
	Country      string     `json:"country,omitempty"`
	BusinessType string     `json:"business_type"`
	Currency     string     `json:"currency,omitempty"`
	RecordOwner  string     `json:"record_owner,omitempty"`
	Source       string     `json:"source"`
	Email        string     `json:"email,omitempty"`
	EmailStatus  string     `json:"email_status"`
	EmailSource  string     `json:"email_source,omitempty"`
	LinkedInURL  string     `json:"linkedin_url,omitempty"`
	FacebookURL  string     `json:"facebook_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// EmailQualifies reports whether the lead already carries a usable email,
// making re-enrichment a no-op.
func (l *Lead) EmailQualifies() bool {
	e := strings.TrimSpace(l.Email)
	return e != "" && !strings.EqualFold(e, EmailNotFound) && !strings.EqualFold(e, "not found")
}

// SearchRecord mirrors an extraction job's progress for the originating
// search (the dashboard's search history row).
type SearchRecord struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Query          string `json:"query"`
	ProcessedCount int    `json:"processed_count"`
	TotalResults   int    `json:"total_results"`
	Status         string `json:"status"`
}

// Search record statuses.
const (
	SearchQueued    = "queued"
	SearchInProcess = "in_process"
	SearchCompleted = "completed"
	SearchFailed    = "failed"
)
