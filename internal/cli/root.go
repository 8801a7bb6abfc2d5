package cli

import (
	"log/slog"
	"os"

	"github.com/me/ticksched/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagDB        string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking TICKSCHED_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("TICKSCHED_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8090"
}

// NewRootCmd creates the root cobra command for the ticksched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ticksched",
		Short: "ticksched: tick-driven task scheduler",
		Long:  "ticksched validates and simulates task plans offline and controls a running tickschedd daemon.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "tickschedd URL (or TICKSCHED_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json, none)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite journal for offline runs (empty: no journal)")

	root.AddCommand(
		newValidateCmd(),
		newSimulateCmd(),
		newRunsCmd(),
		newFiresCmd(),
		newSlotsCmd(),
		newStatsCmd(),
		newTasksCmd(),
		newAddCmd(),
		newControlCmd("pause", "Pause a task, keeping its elapsed count"),
		newControlCmd("continue", "Resume a paused task"),
		newControlCmd("disable", "Remove a task at the end of the next tick"),
		newWatchCmd(),
	)

	return root
}
