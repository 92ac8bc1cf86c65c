package scheduler

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/config"
	"github.com/geoleads/lead-engine/internal/enrich"
	"github.com/geoleads/lead-engine/internal/extraction"
	"github.com/geoleads/lead-engine/internal/job"
	"github.com/geoleads/lead-engine/internal/lead"
	"github.com/geoleads/lead-engine/pkg/places"
)

// progressFloor is the minimum progress shown once a job starts, and
// runningCeiling the maximum shown before it finishes. Both exist so the
// dashboard bar visibly moves without ever claiming completion early.
const (
	progressFloor  = 5
	runningCeiling = 95
)

// jobStore is the slice of the job ledger the scheduler uses.
type jobStore interface {
	Get(ctx context.Context, id string) (*job.Job, error)
	Update(ctx context.Context, id string, version int, p job.Patch) error
	SaveWorkingSet(ctx context.Context, jobID string, places any, total int) error
	GetWorkingSet(ctx context.Context, jobID string, dest any) (int, error)
}

// leadStore is the slice of the lead store the scheduler uses.
type leadStore interface {
	Insert(ctx context.Context, l *lead.Lead) (bool, error)
	Get(ctx context.Context, id string) (*lead.Lead, error)
	UpdateEnrichment(ctx context.Context, id, email, status, source string) error
	UpdateSocial(ctx context.Context, id, linkedin, facebook string) error
	UpdateSearchProgress(ctx context.Context, id string, processed, total int, status string) error
}

// candidateSource discovers and hydrates place candidates.
type candidateSource interface {
	CollectCoordinates(ctx context.Context, lat, lng float64, radiusM int, categories []string) ([]extraction.Candidate, error)
	CollectCity(ctx context.Context, city, country string, categories []string) ([]extraction.Candidate, error)
	Fetch(ctx context.Context, placeID string) (*places.PlaceDetails, error)
}

// enricher runs the provider waterfall for one lead. ItemBudget is the
// worst-case wall-clock cost of a single lead, used to size the in-chunk
// safety margin.
type enricher interface {
	Run(ctx context.Context, l *lead.Lead) enrich.Result
	ItemBudget() time.Duration
}

// socialSource finds public social profiles for a business.
type socialSource interface {
	LinkedInProfile(ctx context.Context, businessName string) (string, error)
	FacebookPage(ctx context.Context, businessName string) (string, error)
	ItemBudget() time.Duration
}

// Scheduler executes one bounded chunk of a job at a time and schedules
// continuations until the job reaches a terminal state.
type Scheduler struct {
	jobs   jobStore
	leads  leadStore
	walker candidateSource
	wf     enricher
	social socialSource
	queue  *Queue
	cfg    config.SchedulerConfig
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Scheduler.
func New(jobs jobStore, leads leadStore, walker candidateSource, wf enricher, social socialSource, queue *Queue, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		leads:  leads,
		walker: walker,
		wf:     wf,
		social: social,
		queue:  queue,
		cfg:    cfg,
		log:    zap.L().With(zap.String("component", "scheduler")),
		now:    time.Now,
	}
}

// Submit enqueues chunk 0 of a freshly created job.
func (s *Scheduler) Submit(jobID string) {
	s.queue.Enqueue(Continuation{JobID: jobID, Chunk: 0})
}

// RunChunk executes one slice of a job. Re-running any chunk is safe: a
// terminal job is a no-op, progress only moves forward, and lead writes
// deduplicate. Errors returned here are infrastructure failures; domain
// failures land on the ledger instead.
func (s *Scheduler) RunChunk(ctx context.Context, jobID string, chunk int) error {
	j, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if eris.Is(err, job.ErrNotFound) {
			s.log.Warn("continuation for unknown job", zap.String("job_id", jobID))
			return nil
		}
		return err
	}
	if j.Status.Terminal() {
		return nil
	}

	r := &run{s: s, j: j}

	if j.CancelRequested {
		return r.fail(ctx, "cancelled")
	}

	if chunk == 0 {
		if err := j.Params.Validate(j.Type); err != nil {
			return r.fail(ctx, err.Error())
		}
	}

	msg := fmt.Sprintf("processing chunk %d", chunk+1)
	patch := job.Patch{Message: &msg}
	if j.Status == job.StatusQueued {
		st := job.StatusProcessing
		floor := progressFloor
		patch.Status = &st
		patch.Progress = &floor
	}
	if err := r.patch(ctx, patch); err != nil {
		if eris.Is(err, job.ErrTerminal) {
			return nil
		}
		return err
	}

	deadline := s.now().Add(time.Duration(s.cfg.ChunkBudgetSecs) * time.Second)

	var done bool
	switch j.Type {
	case job.TypeCoordinateExtraction, job.TypeCityExtraction:
		done, err = s.extractionChunk(ctx, r, deadline)
	case job.TypeEnrichment:
		done, err = s.enrichmentChunk(ctx, r, deadline)
	case job.TypeSocialEnrichment:
		done, err = s.socialChunk(ctx, r, deadline)
	default:
		err = eris.Errorf("scheduler: unhandled job type %q", j.Type)
	}
	if err != nil {
		if eris.Is(err, job.ErrTerminal) {
			return nil
		}
		return r.fail(ctx, err.Error())
	}
	if done {
		return nil
	}

	s.queue.EnqueueAfter(
		Continuation{JobID: jobID, Chunk: chunk + 1},
		time.Duration(s.cfg.ChunkDelaySecs)*time.Second,
	)
	return nil
}

// outOfTime reports whether another item would risk overrunning the chunk
// budget, given the worst-case cost of that item.
func (s *Scheduler) outOfTime(deadline time.Time, margin time.Duration) bool {
	return s.now().Add(margin).After(deadline)
}

// safetyMargin picks the in-chunk headroom for one item: the configured
// floor, or the handler's worst-case item cost when that is larger. A chain
// of slow providers must not be admitted on a margin sized for a single
// HTTP call.
func (s *Scheduler) safetyMargin(itemBudget time.Duration) time.Duration {
	margin := time.Duration(s.cfg.ItemSafetyMarginSecs) * time.Second
	if itemBudget > margin {
		return itemBudget
	}
	return margin
}

// progressFor maps cumulative counts onto the visible progress range for a
// running job.
func progressFor(processed, total int) int {
	if total <= 0 {
		return progressFloor
	}
	pct := int(math.Floor(float64(processed) / float64(total) * 100))
	if pct < progressFloor {
		return progressFloor
	}
	if pct > runningCeiling {
		return runningCeiling
	}
	return pct
}

// parseCoordinates splits a "lat,lng" pair.
func parseCoordinates(s string) (float64, float64, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("scheduler: malformed coordinates %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "scheduler: parse latitude in %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "scheduler: parse longitude in %q", s)
	}
	return lat, lng, nil
}

// run tracks one job through a chunk, carrying the optimistic version
// forward across ledger writes.
type run struct {
	s *Scheduler
	j *job.Job
}

// patch applies a ledger update under the tracked version. A conflict
// reloads the row once: if another writer finished the job the terminal
// error propagates, otherwise the patch retries against the fresh version.
func (r *run) patch(ctx context.Context, p job.Patch) error {
	err := r.s.jobs.Update(ctx, r.j.ID, r.j.Version, p)
	if eris.Is(err, job.ErrVersionConflict) {
		current, gerr := r.s.jobs.Get(ctx, r.j.ID)
		if gerr != nil {
			return gerr
		}
		if current.Status.Terminal() {
			return job.ErrTerminal
		}
		// The cancel flag, if newly set, is honored at the next chunk
		// boundary.
		r.j.Version = current.Version
		r.j.CancelRequested = current.CancelRequested
		err = r.s.jobs.Update(ctx, r.j.ID, r.j.Version, p)
	}
	if err != nil {
		return err
	}

	r.j.Version++
	r.apply(p)
	return nil
}

func (r *run) apply(p job.Patch) {
	if p.Status != nil {
		r.j.Status = *p.Status
	}
	if p.Progress != nil && *p.Progress > r.j.Progress {
		r.j.Progress = *p.Progress
	}
	if p.Message != nil {
		r.j.CurrentMessage = *p.Message
	}
	if p.ProcessedCount != nil && *p.ProcessedCount > r.j.ProcessedCount {
		r.j.ProcessedCount = *p.ProcessedCount
	}
	if p.TotalCount != nil {
		r.j.TotalCount = *p.TotalCount
	}
	if p.CompletedAt != nil {
		r.j.CompletedAt = p.CompletedAt
	}
}

// fail moves the job to failed. Losing the race to another finisher is
// fine, the job is terminal either way.
func (r *run) fail(ctx context.Context, errMsg string) error {
	err := r.failNow(ctx, errMsg)
	if eris.Is(err, job.ErrTerminal) {
		return nil
	}
	return err
}

func (r *run) failNow(ctx context.Context, errMsg string) error {
	st := job.StatusFailed
	msg := "failed: " + errMsg
	now := r.s.now()
	err := r.patch(ctx, job.Patch{
		Status:      &st,
		Message:     &msg,
		Error:       &errMsg,
		CompletedAt: &now,
	})
	if err == nil {
		r.s.mirrorSearch(ctx, r.j, r.j.ProcessedCount, r.j.TotalCount, lead.SearchFailed)
	}
	return err
}

// complete moves the job to completed with full progress.
func (r *run) complete(ctx context.Context, msg string) error {
	st := job.StatusCompleted
	full := 100
	now := r.s.now()
	return r.patch(ctx, job.Patch{
		Status:      &st,
		Progress:    &full,
		Message:     &msg,
		CompletedAt: &now,
	})
}

// mirrorSearch reflects job progress onto the originating search record.
// Mirror failures are logged, never fatal: the ledger stays authoritative.
func (s *Scheduler) mirrorSearch(ctx context.Context, j *job.Job, processed, total int, status string) {
	if j.Params.SearchID == "" {
		return
	}
	if err := s.leads.UpdateSearchProgress(ctx, j.Params.SearchID, processed, total, status); err != nil {
		s.log.Warn("search record mirror failed",
			zap.String("job_id", j.ID),
			zap.String("search_id", j.Params.SearchID),
			zap.Error(err))
	}
}
