package job

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/geoleads/lead-engine/internal/db"
)

// ErrNotFound is returned when a job id has no ledger row.
var ErrNotFound = eris.New("job: not found")

// ErrVersionConflict is returned when a conditional update lost to a
// concurrent writer. Callers reload the job and decide whether to retry.
var ErrVersionConflict = eris.New("job: version conflict")

// ErrTerminal is returned when an update targets a completed or failed job.
// Terminal states never transition back to processing.
var ErrTerminal = eris.New("job: already terminal")

// Patch is a partial ledger update. Nil fields are left untouched.
// created_at is never part of a patch.
type Patch struct {
	Status         *Status
	Progress       *int
	Message        *string
	Error          *string
	ProcessedCount *int
	TotalCount     *int
	CompletedAt    *time.Time
}

// Store provides read/write access to the jobs table.
type Store struct {
	pool db.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new queued job and returns it.
func (s *Store) Create(ctx context.Context, t Type, params Params) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "job: marshal params")
	}

	j := &Job{
		ID:                uuid.NewString(),
		Type:              t,
		Params:            params,
		Status:            StatusQueued,
		Priority:          DefaultPriority(t),
		EstimatedDuration: EstimateDuration(t, params),
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, type, params, status, progress, current_message, priority, estimated_duration)
		 VALUES ($1, $2, $3, 'queued', 0, '', $4, $5)
		 RETURNING created_at, version`,
		j.ID, string(j.Type), paramsJSON, j.Priority, j.EstimatedDuration,
	).Scan(&j.CreatedAt, &j.Version)
	if err != nil {
		return nil, eris.Wrapf(err, "job: create %s", t)
	}
	return j, nil
}

// Get loads a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var (
		j          Job
		paramsJSON []byte
		msg, errS  *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, type, params, status, progress, current_message, error,
		        cancel_requested, processed_count, total_count, priority,
		        estimated_duration, created_at, completed_at, version
		 FROM jobs WHERE id = $1`,
		id,
	).Scan(&j.ID, &j.Type, &paramsJSON, &j.Status, &j.Progress, &msg, &errS,
		&j.CancelRequested, &j.ProcessedCount, &j.TotalCount, &j.Priority,
		&j.EstimatedDuration, &j.CreatedAt, &j.CompletedAt, &j.Version)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "job: get %s", id)
	}

	if msg != nil {
		j.CurrentMessage = *msg
	}
	if errS != nil {
		j.Error = *errS
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &j.Params); err != nil {
			return nil, eris.Wrapf(err, "job: unmarshal params for %s", id)
		}
	}
	return &j, nil
}

// Update applies a partial patch guarded by the job's version. Progress and
// processed_count are written through GREATEST so a stale duplicate chunk
// can never move either backwards, and terminal rows are never modified. Returns ErrVersionConflict when a concurrent writer moved
// the row first, ErrTerminal when the job already finished.
func (s *Store) Update(ctx context.Context, id string, version int, p Patch) error {
	set := []string{"version = version + 1"}
	args := []any{id, version}

	add := func(column, expr string, val any) {
		args = append(args, val)
		set = append(set, column+" = "+fmt.Sprintf(expr, len(args)))
	}

	if p.Status != nil {
		add("status", "$%d", string(*p.Status))
	}
	if p.Progress != nil {
		add("progress", "GREATEST(progress, $%d)", *p.Progress)
	}
	if p.Message != nil {
		add("current_message", "$%d", *p.Message)
	}
	if p.Error != nil {
		add("error", "$%d", *p.Error)
	}
	if p.ProcessedCount != nil {
		add("processed_count", "GREATEST(processed_count, $%d)", *p.ProcessedCount)
	}
	if p.TotalCount != nil {
		add("total_count", "$%d", *p.TotalCount)
	}
	if p.CompletedAt != nil {
		add("completed_at", "$%d", *p.CompletedAt)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET `+strings.Join(set, ", ")+`
		 WHERE id = $1 AND version = $2 AND status NOT IN ('completed', 'failed')`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "job: update %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Guarded update hit nothing: distinguish missing, finished, and raced.
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return ErrTerminal
	}
	return ErrVersionConflict
}

// RequestCancel flags a job for cancellation. The scheduler honors the flag
// at the top of the next chunk.
func (s *Store) RequestCancel(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET cancel_requested = true
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "job: request cancel %s", id)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrTerminal
	}
	return nil
}

// SaveWorkingSet persists the chunk-0 candidate list for a job. The working
// set lives in its own table so input params stay immutable.
func (s *Store) SaveWorkingSet(ctx context.Context, jobID string, places any, total int) error {
	placesJSON, err := json.Marshal(places)
	if err != nil {
		return eris.Wrap(err, "job: marshal working set")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_working_sets (job_id, places, total, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (job_id) DO UPDATE SET
			places = EXCLUDED.places,
			total = EXCLUDED.total,
			updated_at = now()`,
		jobID, placesJSON, total,
	)
	return eris.Wrapf(err, "job: save working set for %s", jobID)
}

// GetWorkingSet loads a job's cached candidate list into dest and returns
// the total. ErrNotFound when chunk 0 has not stored a working set yet.
func (s *Store) GetWorkingSet(ctx context.Context, jobID string, dest any) (int, error) {
	var (
		placesJSON []byte
		total      int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT places, total FROM job_working_sets WHERE job_id = $1`,
		jobID,
	).Scan(&placesJSON, &total)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, eris.Wrapf(err, "job: get working set for %s", jobID)
	}
	if err := json.Unmarshal(placesJSON, dest); err != nil {
		return 0, eris.Wrapf(err, "job: unmarshal working set for %s", jobID)
	}
	return total, nil
}
