package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/job"
	"github.com/geoleads/lead-engine/internal/lead"
)

// enrichmentChunk advances an enrichment job by one batch of lead ids. The
// job is done when a batch comes back shorter than the batch quota, which
// only happens on the final slice of the id list.
func (s *Scheduler) enrichmentChunk(ctx context.Context, r *run, deadline time.Time) (bool, error) {
	ids := r.j.Params.LeadIDs
	total := len(ids)

	if r.j.TotalCount != total {
		if err := r.patch(ctx, job.Patch{TotalCount: &total}); err != nil {
			return false, err
		}
	}

	start := r.j.ProcessedCount
	if start >= total {
		return true, s.completeEnrichment(ctx, r, total)
	}

	end := start + s.cfg.EnrichmentChunkSize
	if end > total {
		end = total
	}
	batch := end - start

	margin := s.safetyMargin(s.wf.ItemBudget())
	n := 0
	for i := start; i < end; i++ {
		if s.outOfTime(deadline, margin) {
			break
		}
		id := ids[i]
		l, err := s.leads.Get(ctx, id)
		if err != nil {
			if eris.Is(err, lead.ErrNotFound) {
				s.log.Warn("enrichment target missing",
					zap.String("job_id", r.j.ID),
					zap.String("lead_id", id))
				n++
				continue
			}
			return false, err
		}
		if l.EmailQualifies() {
			// Already enriched, retried chunks skip straight past.
			n++
			continue
		}

		res := s.wf.Run(ctx, l)
		if err := s.leads.UpdateEnrichment(ctx, id, res.Email, res.Status, res.Source); err != nil {
			s.log.Warn("enrichment write failed",
				zap.String("job_id", r.j.ID),
				zap.String("lead_id", id),
				zap.Error(err))
		}
		n++
	}

	processed := start + n
	progress := progressFor(processed, total)
	msg := fmt.Sprintf("enriched %d of %d leads", processed, total)
	if err := r.patch(ctx, job.Patch{
		ProcessedCount: &processed,
		Progress:       &progress,
		Message:        &msg,
	}); err != nil {
		return false, err
	}

	if n == batch && batch < s.cfg.EnrichmentChunkSize {
		return true, s.completeEnrichment(ctx, r, total)
	}
	return false, nil
}

func (s *Scheduler) completeEnrichment(ctx context.Context, r *run, total int) error {
	return r.complete(ctx, fmt.Sprintf("Enrichment complete: %d leads processed", total))
}
