package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/store"
)

var (
	jobsStatus string
	jobsLimit  int
	jobsOffset int
	jobsJSON   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and delete stored jobs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("store")
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Print one job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "get job")
		}
		if job == nil {
			return eris.Errorf("job %s not found", args[0])
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.JobFilter{Status: model.JobStatus(jobsStatus), Limit: jobsLimit, Offset: jobsOffset}
		jobs, err := st.ListJobs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list jobs")
		}
		total, err := st.CountJobs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "count jobs")
		}

		if jobsJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"items": jobs, "total": total})
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "JOB ID\tCOMPANY\tSTATUS\tSTAGES\tLAST STAGE\tCREATED")
		for _, j := range jobs {
			progress := fmt.Sprintf("%d/%d", len(j.CompletedStages), len(model.Stages(j.UseAutoDiscovery)))
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.CompanyName, j.Status, progress, j.LastStage(), j.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(tw, "\n%d of %d jobs\n", len(jobs), total)
		return tw.Flush()
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a stored job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		deleted, err := st.DeleteJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "delete job")
		}
		if !deleted {
			return eris.Errorf("job %s not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (processing, completed, failed)")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "max jobs to list")
	jobsListCmd.Flags().IntVar(&jobsOffset, "offset", 0, "jobs to skip")
	jobsListCmd.Flags().BoolVar(&jobsJSON, "json", false, "print JSON instead of a table")

	jobsCmd.AddCommand(jobsGetCmd, jobsListCmd, jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}
