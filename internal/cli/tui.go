package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tasksync/internal/logging"
	"tasksync/internal/tui"
)

// launchTUIFunc runs the task manager screen. Tests replace it.
var launchTUIFunc = func(ctx context.Context, ctrl tui.Controller) error {
	_, err := tea.NewProgram(tui.New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func newTUICommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Short:   "Open the interactive task manager",
		GroupID: groupTask,
		Long: `Open the interactive task manager.

Logs are written to tasksync.log in the local storage directory while the
screen is open.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger, closer, err := logging.OpenFile(cfg.Client.LocalDir, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctrl, err := newController(cfg, logger)
			if err != nil {
				return err
			}
			return launchTUIFunc(cmd.Context(), ctrl)
		},
	}
}
