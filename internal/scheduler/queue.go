// Package scheduler drives chunked job execution: it slices long-running
// jobs into bounded time slices, persists progress between slices, and
// schedules continuations until the job converges on a terminal state.
package scheduler

import (
	"time"

	"go.uber.org/zap"
)

// Continuation names the next slice of a job to run.
type Continuation struct {
	JobID string
	Chunk int
}

// Queue is the in-process continuation queue feeding the worker pool.
type Queue struct {
	ch  chan Continuation
	log *zap.Logger
}

// NewQueue creates a queue with the given depth.
func NewQueue(depth int) *Queue {
	return &Queue{
		ch:  make(chan Continuation, depth),
		log: zap.L().With(zap.String("component", "queue")),
	}
}

// Enqueue submits a continuation without blocking. A saturated queue drops
// the continuation; the job stays resumable from its persisted state.
func (q *Queue) Enqueue(c Continuation) {
	select {
	case q.ch <- c:
	default:
		q.log.Warn("queue saturated, dropping continuation",
			zap.String("job_id", c.JobID),
			zap.Int("chunk", c.Chunk))
	}
}

// EnqueueAfter submits a continuation after a delay, fire and forget.
func (q *Queue) EnqueueAfter(c Continuation, d time.Duration) {
	if d <= 0 {
		q.Enqueue(c)
		return
	}
	time.AfterFunc(d, func() { q.Enqueue(c) })
}

// C exposes the receive side for workers.
func (q *Queue) C() <-chan Continuation {
	return q.ch
}
