package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/competitive-intel/internal/chart"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Write a job's chart data to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

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

		out := exportOut
		if out == "" {
			out = job.ID + "-chart.xlsx"
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "create workbook file")
		}
		if err := chart.WriteXLSX(f, job); err != nil {
			_ = f.Close()
			_ = os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "close workbook file")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default <job-id>-chart.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
