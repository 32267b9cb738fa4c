package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/handlers"
	"tasksync/internal/logging"
	"tasksync/internal/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the task REST API",
		GroupID: groupServer,
		Long: `Run the task REST API.

The store is selected with STORE (sqlite or mongo). SQLite keeps its data in
DB_PATH; Mongo connects to MONGODB_URI and uses MONGODB_DATABASE.

Examples:
  tasksync serve
  STORE=mongo MONGODB_URI=mongodb://127.0.0.1:27017 tasksync serve --port 4000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logging.New(cmd.ErrOrStderr(), cfg.Log.Level))
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides PORT)")
	return cmd
}

// runServer serves the API until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, err := store.Open(ctx, cfg.Store.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer s.Close()

	srv := newHTTPServer(cfg, handlers.New(s, logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", "http://localhost"+srv.Addr, "store", s.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func newHTTPServer(cfg *config.Config, h *handlers.Handlers) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
