// Package cli provides the command-line interface for tasksync.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/local"
	"tasksync/internal/logging"
	"tasksync/internal/models"
	"tasksync/internal/remote"
	"tasksync/internal/tasksync"
)

// Command group IDs.
const (
	groupServer = "server"
	groupTask   = "task"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

// NewRootCommand creates the root command for tasksync.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "tasksync",
		Short: "Task tracker with a REST backend and an offline-capable client",
		Long: `tasksync runs a task REST API and a terminal client for it.

The client talks to the API while it is reachable. When a call fails it
switches to a local JSON slot and stays there until you reconnect. Tasks
created offline can be pushed to the API with "tasksync sync".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file (default .env)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddGroup(
		&cobra.Group{ID: groupServer, Title: "Server:"},
		&cobra.Group{ID: groupTask, Title: "Tasks:"},
	)

	root.AddCommand(
		newServeCommand(opts),
		newTUICommand(opts),
		newListCommand(opts),
		newAddCommand(opts),
		newToggleCommand(opts),
		newDeleteCommand(opts),
		newSyncCommand(opts),
		newPostsCommand(opts),
	)

	return root
}

// load reads the configuration, applying the --log-level override.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: o.configPath, EnvFile: o.envFile})
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// newController wires the remote client and the local slot into a controller.
func newController(cfg *config.Config, logger *slog.Logger) (*tasksync.Controller, error) {
	api := remote.New(cfg.Client.APIURL, &http.Client{Timeout: cfg.Client.HTTPTimeout()})

	slot, err := local.Open(cfg.Client.LocalDir, cfg.Client.LocalSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	return tasksync.New(api, slot,
		tasksync.WithLogger(logger),
		tasksync.WithListOptions(models.ListOptions{Page: 1, Limit: cfg.Client.PageLimit}),
	), nil
}

// clientLogger logs to w at the configured level.
func clientLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return logging.New(w, cfg.Log.Level)
}
