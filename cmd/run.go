package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/model"
)

var (
	runCompany        string
	runQuery          string
	runCompetitors    []string
	runAuto           bool
	runMaxCompetitors int
	runFreshness      string
	runPremium        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one report job in the foreground and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		freshness, err := model.ParseFreshness(runFreshness)
		if err != nil {
			return err
		}
		req := model.SubmitRequest{
			CompanyName:      runCompany,
			Query:            runQuery,
			Competitors:      runCompetitors,
			UseAutoDiscovery: runAuto,
			MaxCompetitors:   runMaxCompetitors,
			Freshness:        freshness,
			Premium:          runPremium,
		}
		if err := req.Validate(); err != nil {
			return err
		}

		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Pipeline.Execute(ctx, req)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("report finished",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
			zap.Strings("competitors", job.Competitors),
			zap.Int("errors", len(job.Errors)),
		)

		if err := printJSON(cmd.OutOrStdout(), job); err != nil {
			return err
		}
		if job.Status == model.JobStatusFailed {
			return eris.Errorf("job %s failed", job.ID)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runCompany, "company", "", "company name (required)")
	runCmd.Flags().StringVar(&runQuery, "query", "", "question the report should answer (required)")
	runCmd.Flags().StringSliceVar(&runCompetitors, "competitor", nil, "competitor name; repeat or comma-separate")
	runCmd.Flags().BoolVar(&runAuto, "auto", false, "discover competitors instead of using --competitor")
	runCmd.Flags().IntVar(&runMaxCompetitors, "max-competitors", model.DefaultMaxCompetitors, "competitors to discover with --auto")
	runCmd.Flags().StringVar(&runFreshness, "freshness", string(model.FreshnessAnytime), "search window: anytime, 1month, 3months, 6months, 1year")
	runCmd.Flags().BoolVar(&runPremium, "premium", false, "use the premium analysis model")
	_ = runCmd.MarkFlagRequired("company")
	_ = runCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(runCmd)
}
