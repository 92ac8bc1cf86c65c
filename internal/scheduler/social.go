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

// socialChunk advances a social enrichment job by one batch of lead ids,
// looking up LinkedIn and Facebook profiles for each business. Links already
// on the lead are kept, so re-running a chunk never repeats a lookup. The
// completion predicate matches email enrichment: a short batch ends the job.
func (s *Scheduler) socialChunk(ctx context.Context, r *run, deadline time.Time) (bool, error) {
	ids := r.j.Params.LeadIDs
	total := len(ids)

	if r.j.TotalCount != total {
		if err := r.patch(ctx, job.Patch{TotalCount: &total}); err != nil {
			return false, err
		}
	}

	start := r.j.ProcessedCount
	if start >= total {
		return true, s.completeSocial(ctx, r, total)
	}

	end := start + s.cfg.EnrichmentChunkSize
	if end > total {
		end = total
	}
	batch := end - start

	margin := s.safetyMargin(s.social.ItemBudget())
	n := 0
	for i := start; i < end; i++ {
		if s.outOfTime(deadline, margin) {
			break
		}
		id := ids[i]
		l, err := s.leads.Get(ctx, id)
		if err != nil {
			if eris.Is(err, lead.ErrNotFound) {
				s.log.Warn("social enrichment target missing",
					zap.String("job_id", r.j.ID),
					zap.String("lead_id", id))
				n++
				continue
			}
			return false, err
		}
		if l.Name == "" || (l.LinkedInURL != "" && l.FacebookURL != "") {
			n++
			continue
		}

		linkedin, facebook := s.lookupSocial(ctx, r.j.ID, l)
		if linkedin != "" || facebook != "" {
			if err := s.leads.UpdateSocial(ctx, id, linkedin, facebook); err != nil {
				s.log.Warn("social link write failed",
					zap.String("job_id", r.j.ID),
					zap.String("lead_id", id),
					zap.Error(err))
			}
		}
		n++
	}

	processed := start + n
	progress := progressFor(processed, total)
	msg := fmt.Sprintf("social links for %d of %d leads", processed, total)
	if err := r.patch(ctx, job.Patch{
		ProcessedCount: &processed,
		Progress:       &progress,
		Message:        &msg,
	}); err != nil {
		return false, err
	}

	if n == batch && batch < s.cfg.EnrichmentChunkSize {
		return true, s.completeSocial(ctx, r, total)
	}
	return false, nil
}

// lookupSocial runs the profile searches a lead still needs. Lookup failures
// leave the field empty for a later run; a failed LinkedIn search does not
// stop the Facebook one.
func (s *Scheduler) lookupSocial(ctx context.Context, jobID string, l *lead.Lead) (linkedin, facebook string) {
	if l.LinkedInURL == "" {
		url, err := s.social.LinkedInProfile(ctx, l.Name)
		if err != nil {
			s.log.Warn("linkedin lookup failed",
				zap.String("job_id", jobID),
				zap.String("lead_id", l.ID),
				zap.Error(err))
		} else {
			linkedin = url
		}
	}
	if l.FacebookURL == "" {
		url, err := s.social.FacebookPage(ctx, l.Name)
		if err != nil {
			s.log.Warn("facebook lookup failed",
				zap.String("job_id", jobID),
				zap.String("lead_id", l.ID),
				zap.Error(err))
		} else {
			facebook = url
		}
	}
	return linkedin, facebook
}

func (s *Scheduler) completeSocial(ctx context.Context, r *run, total int) error {
	return r.complete(ctx, fmt.Sprintf("Social enrichment complete: %d leads processed", total))
}
