package job

import (
	"math"
	"time"
)

// Projection is the client-facing view of a job's progress.
type Projection struct {
	Percentage int  `json:"progress"`
	ETASeconds *int `json:"eta_seconds,omitempty"`
}

// Project derives a percentage and ETA from ledger fields. Completed jobs
// report 100 regardless of counts; jobs with a known total derive the
// percentage from processed/total; everything else falls back to the
// ledger's own progress field.
func Project(j *Job, now time.Time) Projection {
	pct := j.Progress
	if j.TotalCount > 0 {
		pct = int(math.Round(float64(j.ProcessedCount) / float64(j.TotalCount) * 100))
		if pct > 100 {
			pct = 100
		}
		if pct < j.Progress {
			pct = j.Progress
		}
	}
	if j.Status == StatusCompleted {
		pct = 100
	}

	p := Projection{Percentage: pct}

	if j.Status == StatusProcessing && pct > 0 && pct < 100 {
		ratio := float64(pct) / 100
		elapsed := now.Sub(j.CreatedAt).Seconds()
		if elapsed > 0 {
			eta := int(math.Round(elapsed * (1/ratio - 1)))
			p.ETASeconds = &eta
		}
	}

	return p
}
