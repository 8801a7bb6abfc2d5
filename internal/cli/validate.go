package cli

import (
	"errors"
	"fmt"

	"github.com/me/ticksched/internal/plan"
	"github.com/me/ticksched/pkg/model"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>",
		Short: "Validate a plan file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			p, err := plan.Load(args[0])
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					fmt.Fprintf(out, "Plan %s is invalid:\n", args[0])
					for _, d := range apiErr.Details {
						fmt.Fprintf(out, "  %s: %s\n", d.Field, d.Message)
					}
				}
				return err
			}

			fmt.Fprintf(out, "Plan %s is valid.\n", p.Name)
			fmt.Fprintf(out, "  Tick period: %dms\n", p.TickPeriodMs)
			fmt.Fprintf(out, "  Capacity:    %d\n", p.Capacity)
			fmt.Fprintf(out, "  Tasks:       %d\n", len(p.Tasks))
			return nil
		},
	}
}
