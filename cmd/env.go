package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/geoleads/lead-engine/internal/db"
	"github.com/geoleads/lead-engine/internal/enrich"
	"github.com/geoleads/lead-engine/internal/extraction"
	"github.com/geoleads/lead-engine/internal/job"
	"github.com/geoleads/lead-engine/internal/lead"
	"github.com/geoleads/lead-engine/internal/scheduler"
	"github.com/geoleads/lead-engine/pkg/hunter"
	"github.com/geoleads/lead-engine/pkg/places"
	"github.com/geoleads/lead-engine/pkg/serp"
	"github.com/geoleads/lead-engine/pkg/snov"
	"github.com/geoleads/lead-engine/pkg/webscrape"
)

// engineEnv holds the initialized stores, clients, and scheduler shared by
// the serve/extract/enrich commands.
type engineEnv struct {
	Pool      *pgxpool.Pool
	Jobs      *job.Store
	Leads     *lead.Store
	Queue     *scheduler.Queue
	Scheduler *scheduler.Scheduler
	Workers   *scheduler.Pool
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// initEngine sets up the database, stores, provider clients, and the
// scheduler. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required")
	}
	if cfg.Places.Key == "" {
		return nil, eris.New("places.key is required")
	}

	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	jobs := job.NewStore(pool)
	leads := lead.NewStore(pool)

	placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
	walker := extraction.NewWalker(placesClient, cfg.Extraction)

	wf, err := enrich.New(cfg.Enrich, enrich.Clients{
		Webscrape: webscrape.NewClient(cfg.Webscrape.URL, cfg.Webscrape.AuthToken),
		Hunter:    hunter.NewClient(cfg.Hunter.Key, hunter.WithBaseURL(cfg.Hunter.BaseURL)),
		Snov:      snov.NewClient(cfg.Snov.ClientID, cfg.Snov.ClientSecret, snov.WithBaseURL(cfg.Snov.BaseURL)),
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	social := enrich.NewSocialEnricher(serp.NewClient(cfg.Serp.Key, serp.WithBaseURL(cfg.Serp.BaseURL)))

	queue := scheduler.NewQueue(cfg.Scheduler.QueueDepth)
	sched := scheduler.New(jobs, leads, walker, wf, social, queue, cfg.Scheduler)

	return &engineEnv{
		Pool:      pool,
		Jobs:      jobs,
		Leads:     leads,
		Queue:     queue,
		Scheduler: sched,
		Workers:   scheduler.NewPool(sched, queue, cfg.Scheduler.Workers),
	}, nil
}
