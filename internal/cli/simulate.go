package cli

import (
	"context"
	"fmt"

	"github.com/me/ticksched/internal/action"
	"github.com/me/ticksched/internal/clock"
	"github.com/me/ticksched/internal/plan"
	"github.com/me/ticksched/internal/scheduler"
	"github.com/me/ticksched/internal/store"
	"github.com/me/ticksched/pkg/model"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	var (
		ticks int
		burst int
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "simulate <plan.yaml>",
		Short: "Run a plan offline on a manual clock and print every fire",
		Long: `Run a plan offline for a fixed number of ticks. Ticks are fed by a manual
clock and drained in groups of --burst, so a burst above 1 shows how the plan
behaves when the main loop falls behind. The run is journaled when --db is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks <= 0 {
				return fmt.Errorf("--ticks must be > 0")
			}
			if burst <= 0 {
				burst = 1
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()

			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}

			var st store.Store
			if flagDB != "" {
				sqlStore, err := store.NewSQLiteStore(flagDB, logger)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer sqlStore.Close()
				if err := sqlStore.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				st = sqlStore
			}

			loop, err := scheduler.NewLoop(p, action.NewDefaultRegistry(logger), st, scheduler.DefaultConfig(), logger)
			if err != nil {
				return err
			}
			if !quiet {
				loop.OnFire(func(f model.Fire) {
					fmt.Fprintf(out, "tick %6d  slot %3d  %s\n", f.Tick, f.SlotID, f.TaskName)
				})
			}

			if err := loop.Begin(ctx); err != nil {
				return err
			}
			clk := clock.NewManual(loop)
			for fed := 0; fed < ticks; fed += burst {
				clk.Advance(min(burst, ticks-fed))
				loop.Drain(ctx)
			}
			if err := loop.Finish(ctx, nil); err != nil {
				return err
			}

			s := loop.Snapshot().Stats
			fmt.Fprintf(out, "\nRun %s: %d ticks, %d fires, %d overruns, %d/%d slots occupied\n",
				s.RunID, s.Ticks, s.Fires, s.Overruns, s.Active+s.PendingAdd+s.PendingRemove+s.Paused, s.Capacity)
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 100, "Number of ticks to simulate")
	cmd.Flags().IntVar(&burst, "burst", 1, "Ticks fed between two drains")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Only print the summary")
	return cmd
}
