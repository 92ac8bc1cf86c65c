package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/extraction"
	"github.com/geoleads/lead-engine/internal/job"
	"github.com/geoleads/lead-engine/internal/lead"
)

// extractionChunk advances an extraction job by one slice. The first slice
// collects the candidate working set; every slice then hydrates a window
// of candidates into leads, stopping early when the budget runs short.
// The job is done when the next window would start past the end of the
// working set.
func (s *Scheduler) extractionChunk(ctx context.Context, r *run, deadline time.Time) (bool, error) {
	var candidates []extraction.Candidate
	total, err := s.jobs.GetWorkingSet(ctx, r.j.ID, &candidates)
	if eris.Is(err, job.ErrNotFound) {
		candidates, err = s.collect(ctx, r.j)
		if err != nil {
			return false, err
		}
		total = len(candidates)
		if err := s.jobs.SaveWorkingSet(ctx, r.j.ID, candidates, total); err != nil {
			return false, err
		}
		if err := r.patch(ctx, job.Patch{TotalCount: &total}); err != nil {
			return false, err
		}
		s.mirrorSearch(ctx, r.j, 0, total, lead.SearchInProcess)

		if total == 0 {
			s.mirrorSearch(ctx, r.j, 0, 0, lead.SearchCompleted)
			return true, r.complete(ctx, "Extraction complete: no places found")
		}
	} else if err != nil {
		return false, err
	}

	start := r.j.ProcessedCount
	if start >= total {
		return true, s.completeExtraction(ctx, r, total)
	}

	end := start + s.cfg.ExtractionChunkSize
	if end > total {
		end = total
	}

	margin := s.safetyMargin(0)
	inserted := 0
	n := 0
	for i := start; i < end; i++ {
		if s.outOfTime(deadline, margin) {
			break
		}
		c := candidates[i]
		detail, err := s.walker.Fetch(ctx, c.PlaceID)
		if err != nil {
			// One bad place must not sink the chunk.
			s.log.Warn("detail fetch failed",
				zap.String("job_id", r.j.ID),
				zap.String("place_id", c.PlaceID),
				zap.Error(err))
			n++
			continue
		}
		if l := extraction.FormatLead(detail, c.Category, r.j.Params); l != nil {
			fresh, err := s.leads.Insert(ctx, l)
			if err != nil {
				s.log.Warn("lead insert failed",
					zap.String("job_id", r.j.ID),
					zap.String("place_id", c.PlaceID),
					zap.Error(err))
			} else if fresh {
				inserted++
			}
		}
		n++
	}

	processed := start + n
	progress := progressFor(processed, total)
	msg := fmt.Sprintf("processed %d of %d places", processed, total)
	if err := r.patch(ctx, job.Patch{
		ProcessedCount: &processed,
		Progress:       &progress,
		Message:        &msg,
	}); err != nil {
		return false, err
	}
	s.mirrorSearch(ctx, r.j, processed, total, lead.SearchInProcess)

	s.log.Info("extraction chunk done",
		zap.String("job_id", r.j.ID),
		zap.Int("processed", processed),
		zap.Int("total", total),
		zap.Int("inserted", inserted))

	if processed >= total {
		return true, s.completeExtraction(ctx, r, total)
	}
	return false, nil
}

func (s *Scheduler) completeExtraction(ctx context.Context, r *run, total int) error {
	if err := r.complete(ctx, fmt.Sprintf("Extraction complete: %d places processed", total)); err != nil {
		return err
	}
	s.mirrorSearch(ctx, r.j, total, total, lead.SearchCompleted)
	return nil
}

// collect builds the working set for chunk 0.
func (s *Scheduler) collect(ctx context.Context, j *job.Job) ([]extraction.Candidate, error) {
	switch j.Type {
	case job.TypeCoordinateExtraction:
		lat, lng, err := parseCoordinates(j.Params.Coordinates)
		if err != nil {
			return nil, err
		}
		return s.walker.CollectCoordinates(ctx, lat, lng, j.Params.RadiusMeters, j.Params.Categories)
	case job.TypeCityExtraction:
		return s.walker.CollectCity(ctx, j.Params.City, j.Params.Country, j.Params.Categories)
	default:
		return nil, eris.Errorf("scheduler: %q is not an extraction type", j.Type)
	}
}
