package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/job"
)

var enrichLeadIDs []string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run an enrichment job to completion",
	Long:  "Creates an enrichment job for the given lead ids and drives its chunks inline until the job reaches a terminal state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		params := job.Params{LeadIDs: enrichLeadIDs}
		if err := params.Validate(job.TypeEnrichment); err != nil {
			return err
		}

		j, err := env.Jobs.Create(ctx, job.TypeEnrichment, params)
		if err != nil {
			return err
		}
		zap.L().Info("enrichment job created",
			zap.String("job_id", j.ID),
			zap.Int("leads", len(enrichLeadIDs)))

		return runToCompletion(ctx, env, j.ID)
	},
}

func init() {
	enrichCmd.Flags().StringSliceVar(&enrichLeadIDs, "leads", nil, "lead ids to enrich (comma separated)")
	rootCmd.AddCommand(enrichCmd)
}
