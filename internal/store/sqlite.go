package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tasksync/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := newMigrator(db).up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Name returns the driver name.
func (s *SQLiteStore) Name() string {
	return DriverSQLite
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask creates a new task in the database.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	task.Text = strings.TrimSpace(task.Text)
	if err := task.Validate(); err != nil {
		return err
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.ID = uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, text, completed, created_at)
		VALUES (?, ?, ?, ?)
	`, task.ID, task.Text, task.Completed, task.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task := &models.Task{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, text, completed, created_at
		FROM tasks WHERE id = ?
	`, id).Scan(
		&task.ID,
		&task.Text,
		&task.Completed,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves one page of tasks, newest first. Search is a
// case-insensitive substring match on the task text.
func (s *SQLiteStore) ListTasks(ctx context.Context, opts models.ListOptions) (models.ListResult, error) {
	opts = opts.Normalize()

	where := ""
	var args []interface{}
	if opts.Search != "" {
		where = ` WHERE lower(text) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(opts.Search))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return models.ListResult{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `
		SELECT id, text, completed, created_at
		FROM tasks` + where + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Skip())...)
	if err != nil {
		return models.ListResult{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	items := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.Text, &task.Completed, &task.CreatedAt); err != nil {
			return models.ListResult{}, fmt.Errorf("failed to scan task: %w", err)
		}
		items = append(items, task)
	}
	if err := rows.Err(); err != nil {
		return models.ListResult{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	return models.ListResult{Items: items, Total: total}, nil
}

// UpdateTask applies a partial update and returns the new state of the task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := update.Apply(*task)
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks
		SET text = ?, completed = ?
		WHERE id = ?
	`, updated.Text, updated.Completed, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return &updated, nil
}

// DeleteTask deletes a task by ID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// likePattern builds a LIKE pattern matching search anywhere in the text.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}
