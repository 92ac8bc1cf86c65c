package lead

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/geoleads/lead-engine/internal/db"
)

// ErrNotFound is returned when a lead id has no row.
var ErrNotFound = eris.New("lead: not found")

// Store provides read/write access to the leads and search_records tables.
type Store struct {
	pool db.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// Insert persists a lead, deduplicating on external_id. Returns false when a
// lead with the same external identifier already exists (retried chunks hit
// this path).
func (s *Store) Insert(ctx context.Context, l *Lead) (bool, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, external_id, name, address, location, website, phone,
		                    city, country, business_type, currency, record_owner, source,
		                    email_status)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''),
		         NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''), NULLIF($12, ''), $13,
		         $14)
		 ON CONFLICT (external_id) DO NOTHING`,
		l.ID, l.ExternalID, l.Name, l.Address, l.Location, l.Website, l.Phone,
		l.City, l.Country, l.BusinessType, l.Currency, l.RecordOwner, l.Source,
		EmailUnverified,
	)
	if err != nil {
		return false, eris.Wrapf(err, "lead: insert %s", l.ExternalID)
	}
	return tag.RowsAffected() > 0, nil
}

// Get loads a lead by id.
func (s *Store) Get(ctx context.Context, id string) (*Lead, error) {
	var (
		l                                Lead
		website, phone, city, country    *string
		currency, owner, email, emailSrc *string
		linkedin, facebook               *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, external_id, name, address, location, website, phone,
		        city, country, business_type, currency, record_owner, source,
		        email, email_status, email_source, linkedin_url, facebook_url,
		        created_at, last_modified
		 FROM leads WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.ExternalID, &l.Name, &l.Address, &l.Location, &website, &phone,
		&city, &country, &l.BusinessType, &currency, &owner, &l.Source,
		&email, &l.EmailStatus, &emailSrc, &linkedin, &facebook,
		&l.CreatedAt, &l.LastModified)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "lead: get %s", id)
	}

	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&l.Website, website)
	assign(&l.Phone, phone)
	assign(&l.City, city)
	assign(&l.Country, country)
	assign(&l.Currency, currency)
	assign(&l.RecordOwner, owner)
	assign(&l.Email, email)
	assign(&l.EmailSource, emailSrc)
	assign(&l.LinkedInURL, linkedin)
	assign(&l.FacebookURL, facebook)
	return &l, nil
}

// UpdateEnrichment records a waterfall outcome on a lead.
func (s *Store) UpdateEnrichment(ctx context.Context, id, email, status, source string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET email = $2, email_status = $3, email_source = NULLIF($4, ''), last_modified = now()
		 WHERE id = $1`,
		id, email, status, source,
	)
	if err != nil {
		return eris.Wrapf(err, "lead: update enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSocial records discovered social profile links on a lead. Empty
// values leave the existing column alone, so a partial lookup never erases
// a link found earlier.
func (s *Store) UpdateSocial(ctx context.Context, id, linkedin, facebook string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET linkedin_url = COALESCE(NULLIF($2, ''), linkedin_url),
		     facebook_url = COALESCE(NULLIF($3, ''), facebook_url),
		     last_modified = now()
		 WHERE id = $1`,
		id, linkedin, facebook,
	)
	if err != nil {
		return eris.Wrapf(err, "lead: update social links %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSearch inserts a search record mirroring a new extraction job.
func (s *Store) CreateSearch(ctx context.Context, kind, query string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_records (id, kind, query, status) VALUES ($1, $2, $3, 'queued')`,
		id, kind, query,
	)
	if err != nil {
		return "", eris.Wrap(err, "lead: create search record")
	}
	return id, nil
}

// UpdateSearchProgress mirrors cumulative extraction progress onto the
// originating search record.
func (s *Store) UpdateSearchProgress(ctx context.Context, id string, processed, total int, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE search_records
		 SET processed_count = $2, total_results = $3, status = $4, updated_at = now()
		 WHERE id = $1`,
		id, processed, total, status,
	)
	return eris.Wrapf(err, "lead: update search record %s", id)
}
