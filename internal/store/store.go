package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tasksync/internal/models"
)

// ErrNotFound is returned when a task id does not exist in the store.
var ErrNotFound = errors.New("task not found")

// Store defines the interface for data persistence operations.
type Store interface {
	// Task operations
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, opts models.ListOptions) (models.ListResult, error)
	UpdateTask(ctx context.Context, id string, update models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Diagnostics
	Name() string
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Options selects and configures a Store implementation.
type Options struct {
	Driver        string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// Open creates the Store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.SQLitePath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		return NewSQLiteStore(opts.SQLitePath)
	case DriverMongo:
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
