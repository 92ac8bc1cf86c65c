package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/extraction"
	"github.com/geoleads/lead-engine/internal/job"
)

var extractFlags struct {
	coordinates string
	radius      int
	city        string
	country     string
	categories  []string
	currency    string
	owner       string
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run a place extraction job to completion",
	Long:  "Creates an extraction job (coordinate or city mode) and drives its chunks inline until the job reaches a terminal state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		t := job.TypeCoordinateExtraction
		if extractFlags.coordinates == "" && extractFlags.city != "" {
			t = job.TypeCityExtraction
		}

		params := job.Params{
			Coordinates:  extractFlags.coordinates,
			RadiusMeters: extractFlags.radius,
			City:         extractFlags.city,
			Country:      extractFlags.country,
			Categories:   extractFlags.categories,
			Currency:     extractFlags.currency,
			CreatedBy:    extractFlags.owner,
		}
		if err := params.Validate(t); err != nil {
			return err
		}

		kind, query := "coordinates", extraction.CoordinateQuery(params.Coordinates, params.RadiusMeters, params.Categories)
		if t == job.TypeCityExtraction {
			kind, query = "city", extraction.CityQuery(params.City, params.Country, params.Categories)
		}
		searchID, err := env.Leads.CreateSearch(ctx, kind, query)
		if err != nil {
			return err
		}
		params.SearchID = searchID

		j, err := env.Jobs.Create(ctx, t, params)
		if err != nil {
			return err
		}
		zap.L().Info("extraction job created",
			zap.String("job_id", j.ID),
			zap.String("type", string(t)),
			zap.String("query", query))

		return runToCompletion(ctx, env, j.ID)
	},
}

// runToCompletion drives a job chunk by chunk in the current process,
// bypassing the continuation queue.
func runToCompletion(ctx context.Context, env *engineEnv, jobID string) error {
	for chunk := 0; ; chunk++ {
		if err := env.Scheduler.RunChunk(ctx, jobID, chunk); err != nil {
			return err
		}
		j, err := env.Jobs.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			zap.L().Info("job finished",
				zap.String("job_id", jobID),
				zap.String("status", string(j.Status)),
				zap.String("message", j.CurrentMessage),
				zap.Int("processed", j.ProcessedCount))
			return nil
		}
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractFlags.coordinates, "coords", "", `search origin as "lat,lng"`)
	extractCmd.Flags().IntVar(&extractFlags.radius, "radius", 1000, "search radius in meters")
	extractCmd.Flags().StringVar(&extractFlags.city, "city", "", "city name for city-mode search")
	extractCmd.Flags().StringVar(&extractFlags.country, "country", "", "country for city-mode search")
	extractCmd.Flags().StringSliceVar(&extractFlags.categories, "categories", nil, "business categories to search (comma separated)")
	extractCmd.Flags().StringVar(&extractFlags.currency, "currency", "", "currency tag for created leads")
	extractCmd.Flags().StringVar(&extractFlags.owner, "owner", "", "record owner for created leads")
	rootCmd.AddCommand(extractCmd)
}
