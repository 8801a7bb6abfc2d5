package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/me/ticksched/pkg/model"
	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the task specs known to the running scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/tasks/")
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			var tasks []model.TaskSpec
			if err := json.Unmarshal(resp.Data, &tasks); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{
					t.Name, string(t.Kind),
					strconv.Itoa(t.IntervalMs),
					strconv.Itoa(t.PredelayMs),
					string(t.Action.Type),
				})
			}
			printTable(out, []string{"NAME", "KIND", "INTERVAL_MS", "PREDELAY_MS", "ACTION"}, rows)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	var spec model.TaskSpec
	var kind, actionType string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a task with the running scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Kind = model.TaskKind(kind)
			spec.Action.Type = model.ActionType(actionType)

			resp, err := client.Post("/api/v1/tasks/", spec)
			if err != nil {
				return fmt.Errorf("add task: %w", err)
			}

			var res model.AddTaskResult
			if err := json.Unmarshal(resp.Data, &res); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s registered in slot %d\n", res.Name, res.Slot)
			return nil
		},
	}

	cmd.Flags().StringVar(&spec.Name, "name", "", "Task name")
	cmd.Flags().StringVar(&kind, "kind", "periodic", "Task kind (single, periodic)")
	cmd.Flags().IntVar(&spec.IntervalMs, "interval-ms", 0, "Interval in milliseconds")
	cmd.Flags().IntVar(&spec.PredelayMs, "predelay-ms", 0, "Delay before the periodic phase starts")
	cmd.Flags().BoolVar(&spec.Paused, "paused", false, "Register the task paused")
	cmd.Flags().StringVar(&actionType, "action", "log", "Action type (log, script)")
	cmd.Flags().StringVar(&spec.Action.Message, "message", "", "Message for the log action")
	cmd.Flags().StringVar(&spec.Action.Script, "script", "", "JavaScript source for the script action")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newControlCmd(op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.ControlTask(context.Background(), op, args[0]); err != nil {
				return fmt.Errorf("%s %s: %w", op, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %s\n", args[0], op)
			return nil
		},
	}
}
