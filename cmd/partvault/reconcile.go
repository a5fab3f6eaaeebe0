package main

import (
	"fmt"

	"github.com/partvault/partvault/internal/lifecycle"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
		schedule   string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair incomplete operations",
		Long: `Scans the operation journal for lifecycle operations that began but never
completed (a crash between the database write and the git mutation) and
repairs each side to a consistent state.

With --watch, keeps running and reconciles on a cron schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, configPath, watch, schedule)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "partvault.yaml", "path to PartVault config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and reconcile on a schedule")
	cmd.Flags().StringVar(&schedule, "schedule", "*/5 * * * *", "cron schedule for --watch (5-field)")
	return cmd
}

func runReconcile(cmd *cobra.Command, configPath string, watch bool, schedule string) error {
	_, coord, err := openCoordinator(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !watch {
		return reconcileOnce(cmd, coord)
	}

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if err := reconcileOnce(cmd, coord); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "reconcile: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	fmt.Fprintf(out, "Watching journal (schedule: %s). Ctrl-C to stop.\n", schedule)
	c.Run()
	return nil
}

func reconcileOnce(cmd *cobra.Command, coord *lifecycle.Coordinator) error {
	actions, err := coord.Reconcile()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(actions) == 0 {
		fmt.Fprintln(out, "Journal clean, nothing to repair.")
		return nil
	}
	for _, a := range actions {
		fmt.Fprintf(out, "[%s] %s\n", a.Op, a.Detail)
	}
	return nil
}
