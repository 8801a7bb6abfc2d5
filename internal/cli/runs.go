package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/me/ticksched/pkg/model"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var (
		state string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if state != "" {
				q.Set("state", state)
			}
			resp, err := client.Get("/api/v1/runs/?" + q.Encode())
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			var runs []model.Run
			if err := json.Unmarshal(resp.Data, &runs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID, r.PlanName, string(r.State),
					strconv.FormatUint(r.Ticks, 10),
					strconv.FormatUint(r.Fires, 10),
					strconv.FormatUint(r.Overruns, 10),
					r.StartedAt.Format(time.RFC3339),
				})
			}
			printTable(out, []string{"ID", "PLAN", "STATE", "TICKS", "FIRES", "OVERRUNS", "STARTED"}, rows)

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(out, "(%d of %d shown)\n", len(runs), resp.Pagination.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (running, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newFiresCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "fires <run_id>",
		Short: "List the task fires recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			resp, err := client.Get("/api/v1/runs/" + url.PathEscape(args[0]) + "/fires?" + q.Encode())
			if err != nil {
				return fmt.Errorf("list fires: %w", err)
			}

			var fires []model.Fire
			if err := json.Unmarshal(resp.Data, &fires); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(fires) == 0 {
				fmt.Fprintln(out, "No fires recorded.")
				return nil
			}

			rows := make([][]string, 0, len(fires))
			for _, f := range fires {
				rows = append(rows, []string{
					strconv.FormatUint(f.Tick, 10),
					strconv.Itoa(f.SlotID),
					f.TaskName,
					f.At.Format(time.RFC3339Nano),
				})
			}
			printTable(out, []string{"TICK", "SLOT", "TASK", "AT"}, rows)

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(out, "(%d-%d of %d shown)\n", offset+1, offset+len(fires), resp.Pagination.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum fires to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Fires to skip")
	return cmd
}
