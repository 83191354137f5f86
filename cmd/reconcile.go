package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/competitive-intel/internal/lease"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fail stale processing jobs whose lease has expired",
	Long: "Runs one reconciler sweep. With the memory lease backend no other process can hold a lease, " +
		"so every processing job older than lease.stale_after_secs is failed.",
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

		leases, err := lease.New(ctx, cfg.Lease)
		if err != nil {
			return eris.Wrap(err, "init lease manager")
		}
		env := &appEnv{Leases: leases}
		defer env.Close()

		n, err := lease.NewReconciler(st, leases, cfg.Lease.StaleAfter()).Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "failed %d abandoned jobs\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
