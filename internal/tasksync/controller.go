// Package tasksync decides which task source is authoritative. It starts on
// the remote API, falls back to the local slot on the first remote failure and
// only returns to remote on an explicit Reconnect.
package tasksync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"tasksync/internal/local"
	"tasksync/internal/models"
	"tasksync/internal/remote"
)

// Mode identifies the active source.
type Mode int

const (
	ModeRemote Mode = iota
	ModeLocal
)

func (m Mode) String() string {
	if m == ModeLocal {
		return "local"
	}
	return "remote"
}

// RemoteSource is the task API client. Tasks returns its cached view.
type RemoteSource interface {
	List(ctx context.Context, opts models.ListOptions) (models.ListResult, error)
	Create(ctx context.Context, text string) (models.Task, error)
	Update(ctx context.Context, id string, update models.TaskUpdate) (models.Task, error)
	Delete(ctx context.Context, id string) error
	Tasks() []models.Task
	Loading() bool
}

// LocalSource is the on-device slot. Update and Delete return an error
// wrapping local.ErrNotFound for unknown ids.
type LocalSource interface {
	Create(ctx context.Context, text string) (models.Task, error)
	Update(ctx context.Context, id string, update models.TaskUpdate) (models.Task, error)
	Delete(ctx context.Context, id string) error
	Replace(ctx context.Context, tasks []models.Task) error
	Tasks() []models.Task
}

// DefaultListOptions is the remote page loaded on start, reconnect and after a sync.
var DefaultListOptions = models.ListOptions{Page: 1, Limit: 100}

// Controller dispatches task operations to the active source. Operations may
// run concurrently; there is no queuing between them.
type Controller struct {
	remote   RemoteSource
	local    LocalSource
	logger   *slog.Logger
	listOpts models.ListOptions

	mu   sync.RWMutex
	mode Mode
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for mode transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithListOptions sets the page loaded from the remote source.
func WithListOptions(opts models.ListOptions) Option {
	return func(c *Controller) { c.listOpts = opts }
}

// New creates a Controller in remote mode.
func New(remoteSrc RemoteSource, localSrc LocalSource, opts ...Option) *Controller {
	c := &Controller{
		remote:   remoteSrc,
		local:    localSrc,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		listOpts: DefaultListOptions,
		mode:     ModeRemote,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the active source.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// UsingRemote reports whether the remote source is active.
func (c *Controller) UsingRemote() bool {
	return c.Mode() == ModeRemote
}

// Loading reports whether a remote list is in flight.
func (c *Controller) Loading() bool {
	return c.remote.Loading()
}

// Tasks returns the active source's current list.
func (c *Controller) Tasks() []models.Task {
	if c.UsingRemote() {
		return c.remote.Tasks()
	}
	return c.local.Tasks()
}

// View returns the active list filtered for display.
func (c *Controller) View(f models.Filter) []models.Task {
	return f.Apply(c.Tasks())
}

// Counts returns the number of tasks known in each source.
func (c *Controller) Counts() (localCount, remoteCount int) {
	return len(c.local.Tasks()), len(c.remote.Tasks())
}

// Start loads the first remote page. A failure switches to local mode.
func (c *Controller) Start(ctx context.Context) {
	c.refresh(ctx)
}

// Reconnect forces remote mode and reloads the list. If the list fails the
// controller falls back to local again. It reports whether remote is active.
func (c *Controller) Reconnect(ctx context.Context) bool {
	c.setMode(ModeRemote)
	c.logger.Info("reconnecting to remote")
	return c.refresh(ctx)
}

// refresh re-lists the remote source without changing mode on success.
func (c *Controller) refresh(ctx context.Context) bool {
	if _, err := c.remote.List(ctx, c.listOpts); err != nil {
		c.fallback("list", err)
		return false
	}
	return true
}

// AddTask creates a task on the active source. Blank text is ignored.
// A remote failure switches to local mode and creates the task locally.
func (c *Controller) AddTask(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if c.UsingRemote() {
		_, err := c.remote.Create(ctx, text)
		if err == nil {
			return nil
		}
		c.fallback("create", err)
	}

	if _, err := c.local.Create(ctx, text); err != nil {
		return fmt.Errorf("failed to add local task: %w", err)
	}
	return nil
}

// ToggleTask flips the completion flag of the task with id in the active
// source. Unknown ids are ignored. The new value is computed before a
// fallback, so the replay against local sets the same value.
func (c *Controller) ToggleTask(ctx context.Context, id string) error {
	if c.UsingRemote() {
		task, ok := models.FindByID(c.remote.Tasks(), id)
		if !ok {
			return nil
		}
		update := models.SetCompleted(!task.Completed)
		_, err := c.remote.Update(ctx, id, update)
		if err == nil {
			return nil
		}
		c.fallback("update", err)
		return c.updateLocal(ctx, id, update)
	}

	task, ok := models.FindByID(c.local.Tasks(), id)
	if !ok {
		return nil
	}
	return c.updateLocal(ctx, id, models.SetCompleted(!task.Completed))
}

// DeleteTask removes the task with id from the active source. Unknown ids
// are ignored. A remote failure switches to local mode and replays the delete.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	if c.UsingRemote() {
		if _, ok := models.FindByID(c.remote.Tasks(), id); !ok {
			return nil
		}
		err := c.remote.Delete(ctx, id)
		if err == nil {
			return nil
		}
		c.fallback("delete", err)
	}
	return c.deleteLocal(ctx, id)
}

// SyncReport summarizes a SyncLocalToBackend run.
type SyncReport struct {
	Pushed  int
	Skipped int
	Removed int
	Failed  bool
}

// SyncLocalToBackend pushes local tasks to the remote source, oldest first,
// skipping any whose text already exists remotely. It stops at the first
// create failure and switches to local mode. Afterwards every local task
// whose text exists remotely is removed from the slot and the remote list
// is reloaded. Tasks are matched by exact text only.
func (c *Controller) SyncLocalToBackend(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	pending := c.local.Tasks()
	if len(pending) == 0 {
		return report, nil
	}

	for i := len(pending) - 1; i >= 0; i-- {
		t := pending[i]
		if models.ContainsText(c.remote.Tasks(), t.Text) {
			report.Skipped++
			continue
		}
		if _, err := c.remote.Create(ctx, t.Text); err != nil {
			report.Failed = true
			c.fallback("sync", err)
			break
		}
		report.Pushed++
	}

	remoteTasks := c.remote.Tasks()
	current := c.local.Tasks()
	remaining := make([]models.Task, 0, len(current))
	for _, t := range current {
		if models.ContainsText(remoteTasks, t.Text) {
			continue
		}
		remaining = append(remaining, t)
	}
	report.Removed = len(current) - len(remaining)

	if report.Removed > 0 {
		if err := c.local.Replace(ctx, remaining); err != nil {
			return report, fmt.Errorf("failed to remove synced local tasks: %w", err)
		}
	}

	c.refresh(ctx)

	c.logger.Info("synced local tasks",
		"pushed", report.Pushed, "skipped", report.Skipped,
		"removed", report.Removed, "failed", report.Failed)
	return report, nil
}

func (c *Controller) updateLocal(ctx context.Context, id string, update models.TaskUpdate) error {
	if _, err := c.local.Update(ctx, id, update); err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("failed to update local task: %w", err)
	}
	return nil
}

func (c *Controller) deleteLocal(ctx context.Context, id string) error {
	if err := c.local.Delete(ctx, id); err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("failed to delete local task: %w", err)
	}
	return nil
}

// fallback switches to local mode. Repeated calls are harmless.
func (c *Controller) fallback(op string, err error) {
	c.mu.Lock()
	was := c.mode
	c.mode = ModeLocal
	c.mu.Unlock()

	if was == ModeRemote {
		c.logger.Warn("backend unavailable, using local storage", "op", op, "kind", errorKind(err), "error", err)
	} else {
		c.logger.Debug("remote call failed in local mode", "op", op, "kind", errorKind(err), "error", err)
	}
}

func errorKind(err error) string {
	switch {
	case remote.IsNotFound(err):
		return "not_found"
	case remote.IsValidation(err):
		return "validation"
	case remote.IsNetwork(err):
		return "network"
	default:
		return "unknown"
	}
}

func (c *Controller) setMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}
