package scheduler

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool runs a fixed set of workers draining the continuation queue.
type Pool struct {
	sched   *Scheduler
	queue   *Queue
	workers int
	log     *zap.Logger
}

// NewPool creates a worker pool.
func NewPool(sched *Scheduler, queue *Queue, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		sched:   sched,
		queue:   queue,
		workers: workers,
		log:     zap.L().With(zap.String("component", "worker")),
	}
}

// Run blocks until the context is cancelled. Chunk errors are logged, not
// fatal: the failing job is already marked failed on the ledger, or will be
// retried when a client resubmits it.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case c := <-p.queue.C():
					if err := p.sched.RunChunk(ctx, c.JobID, c.Chunk); err != nil {
						p.log.Error("chunk run failed",
							zap.String("job_id", c.JobID),
							zap.Int("chunk", c.Chunk),
							zap.Error(err))
					}
				}
			}
		})
	}
	return g.Wait()
}
