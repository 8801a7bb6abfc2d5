package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/me/ticksched/internal/tui"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of the running scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := tui.New(flagServer, client, client, refresh)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", tui.DefaultRefresh, "Refresh interval")
	return cmd
}
