package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "Show the occupied task slots of the running scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := client.Snapshot(context.Background())
			if err != nil {
				return fmt.Errorf("get slots: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(snap.Slots) == 0 {
				fmt.Fprintln(out, "No occupied slots.")
				return nil
			}

			occupied := 0
			rows := make([][]string, 0, len(snap.Slots))
			for _, s := range snap.Slots {
				if s.State.IsOccupied() {
					occupied++
				}
				rows = append(rows, []string{
					strconv.Itoa(s.ID), s.Task, string(s.State), string(s.Kind),
					strconv.FormatUint(uint64(s.IntervalTicks), 10),
					strconv.FormatUint(uint64(s.ElapsedTicks), 10),
					strconv.FormatUint(uint64(s.PredelayTicks), 10),
				})
			}
			printTable(out, []string{"SLOT", "TASK", "STATE", "KIND", "INTERVAL", "ELAPSED", "PREDELAY"}, rows)
			fmt.Fprintf(out, "%d/%d slots occupied\n", occupied, snap.Stats.Capacity)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the counters of the running scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := client.Snapshot(context.Background())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			s := snap.Stats

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:            %s\n", s.RunID)
			fmt.Fprintf(out, "Tick period:    %dms\n", s.TickPeriodMs)
			fmt.Fprintf(out, "Ticks:          %d\n", s.Ticks)
			fmt.Fprintf(out, "Fires:          %d\n", s.Fires)
			fmt.Fprintf(out, "Overruns:       %d\n", s.Overruns)
			fmt.Fprintf(out, "Pending ticks:  %d\n", s.PendingTicks)
			fmt.Fprintf(out, "Max tick:       %dµs\n", s.MaxTickMicros)
			fmt.Fprintf(out, "Slots:          %d active, %d pending add, %d pending remove, %d paused (capacity %d)\n",
				s.Active, s.PendingAdd, s.PendingRemove, s.Paused, s.Capacity)
			return nil
		},
	}
}
