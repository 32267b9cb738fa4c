package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tasksync/internal/models"
	"tasksync/internal/tasksync"
)

// withController loads config, starts a controller and runs fn with it.
// A note is printed to stderr when the controller ends up in local mode.
func withController(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, ctrl *tasksync.Controller) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	ctrl, err := newController(cfg, clientLogger(cmd.ErrOrStderr(), cfg))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ctrl.Start(ctx)
	if err := fn(ctx, ctrl); err != nil {
		return err
	}

	if !ctrl.UsingRemote() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Backend unavailable, using local storage")
	}
	return nil
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tasks",
		GroupID: groupTask,
		Long: `List tasks from the active source.

Output is tab-separated with columns: STATUS, ID, TEXT.

Examples:
  tasksync list
  tasksync list --filter active`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := models.ParseFilter(filter)
			if err != nil {
				return err
			}
			return withController(cmd, opts, func(ctx context.Context, ctrl *tasksync.Controller) error {
				tasks := ctrl.View(f)
				printTasks(cmd.OutOrStdout(), tasks)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d tasks remaining\n", models.Remaining(ctrl.Tasks()))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or completed")
	return cmd
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add <text>",
		Short:   "Add a task",
		GroupID: groupTask,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return models.ErrTextRequired
			}
			return withController(cmd, opts, func(ctx context.Context, ctrl *tasksync.Controller) error {
				if err := ctrl.AddTask(ctx, text); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", text)
				return nil
			})
		},
	}
}

func newToggleCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Short:   "Toggle a task's completed flag",
		GroupID: groupTask,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withController(cmd, opts, func(ctx context.Context, ctrl *tasksync.Controller) error {
				if _, ok := models.FindByID(ctrl.Tasks(), id); !ok {
					return fmt.Errorf("task %s not found", id)
				}
				if err := ctrl.ToggleTask(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Toggled: %s\n", id)
				return nil
			})
		},
	}
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		GroupID: groupTask,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withController(cmd, opts, func(ctx context.Context, ctrl *tasksync.Controller) error {
				if _, ok := models.FindByID(ctrl.Tasks(), id); !ok {
					return fmt.Errorf("task %s not found", id)
				}
				if err := ctrl.DeleteTask(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", id)
				return nil
			})
		},
	}
}

func newSyncCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Short:   "Push local tasks to the backend",
		GroupID: groupTask,
		Long: `Push tasks created while the backend was unavailable.

Local tasks are sent oldest first. A task whose text already exists on the
backend is not sent again. Pushing stops at the first failure. Local tasks
whose text is now on the backend are removed from local storage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, func(ctx context.Context, ctrl *tasksync.Controller) error {
				report, err := ctrl.SyncLocalToBackend(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pushed: %d, skipped: %d, removed from local: %d\n",
					report.Pushed, report.Skipped, report.Removed)
				if report.Failed {
					return fmt.Errorf("sync stopped: backend unavailable")
				}
				return nil
			})
		},
	}
}

func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, "No tasks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range tasks {
		status := "[ ]"
		if t.Completed {
			status = "[x]"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", status, t.ID, t.Text)
	}
	_ = tw.Flush()
}
