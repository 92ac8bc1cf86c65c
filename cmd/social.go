package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoleads/lead-engine/internal/job"
)

var socialLeadIDs []string

var socialCmd = &cobra.Command{
	Use:   "social",
	Short: "Run a social enrichment job to completion",
	Long:  "Creates a social enrichment job that looks up LinkedIn and Facebook profiles for the given lead ids and drives its chunks inline until the job reaches a terminal state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		params := job.Params{LeadIDs: socialLeadIDs}
		if err := params.Validate(job.TypeSocialEnrichment); err != nil {
			return err
		}

		j, err := env.Jobs.Create(ctx, job.TypeSocialEnrichment, params)
		if err != nil {
			return err
		}
		zap.L().Info("social enrichment job created",
			zap.String("job_id", j.ID),
			zap.Int("leads", len(socialLeadIDs)))

		return runToCompletion(ctx, env, j.ID)
	},
}

func init() {
	socialCmd.Flags().StringSliceVar(&socialLeadIDs, "leads", nil, "lead ids to enrich (comma separated)")
	rootCmd.AddCommand(socialCmd)
}
