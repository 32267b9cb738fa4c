// Package local provides the on-device task source: a single named JSON slot
// holding the serialized task array.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"tasksync/internal/models"
)

// ErrNotFound is returned by Update and Delete when the id is not in the slot.
var ErrNotFound = errors.New("local task not found")

// Store implements the local task source backed by <dir>/<slot>.json.
// The slot is read once by Open and rewritten on every mutation.
type Store struct {
	path     string
	lockPath string
	now      func() time.Time

	mu     sync.Mutex
	tasks  []models.Task
	lastID int64
}

// Open loads the slot named slot from dir. A missing file is an empty slot.
func Open(dir, slot string) (*Store, error) {
	path := filepath.Join(dir, slot+".json")
	s := &Store{
		path:     path,
		lockPath: path + ".lock",
		now:      time.Now,
	}

	var tasks []models.Task
	err := s.withFileLock(syscall.LOCK_SH, func() error {
		var err error
		tasks, err = s.read()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.tasks = tasks
	return s, nil
}

// Path returns the slot file path.
func (s *Store) Path() string {
	return s.path
}

// Tasks returns a copy of the slot contents, newest first.
func (s *Store) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// List returns the full set of tasks. There is no pagination or search.
func (s *Store) List(ctx context.Context) ([]models.Task, error) {
	return s.Tasks(), ctx.Err()
}

// Create adds a task with a timestamp-derived id at the front of the slot.
// Callers are expected to have rejected empty text already.
func (s *Store) Create(ctx context.Context, text string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task := models.Task{
		ID:        s.nextID(now),
		Text:      text,
		Completed: false,
		CreatedAt: now.UTC(),
	}

	next := append([]models.Task{task}, s.tasks...)
	if err := s.persist(next); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// Update applies a partial update to the task with the given id.
func (s *Store) Update(ctx context.Context, id string, update models.TaskUpdate) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]models.Task, len(s.tasks))
	copy(next, s.tasks)
	next[idx] = update.Apply(next[idx])
	if err := s.persist(next); err != nil {
		return models.Task{}, err
	}
	return next[idx], nil
}

// Delete removes the task with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]models.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:idx]...)
	next = append(next, s.tasks[idx+1:]...)
	return s.persist(next)
}

// Replace overwrites the whole slot.
func (s *Store) Replace(ctx context.Context, tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Task, len(tasks))
	copy(next, tasks)
	return s.persist(next)
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the current time in milliseconds, bumping it
// when two tasks are created within the same millisecond.
func (s *Store) nextID(now time.Time) string {
	id := now.UnixMilli()
	if s.lastID == 0 {
		for _, t := range s.tasks {
			if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n > s.lastID {
				s.lastID = n
			}
		}
	}
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// persist writes tasks to disk and, on success, makes them the in-memory state.
func (s *Store) persist(tasks []models.Task) error {
	err := s.withFileLock(syscall.LOCK_EX, func() error {
		return s.write(tasks)
	})
	if err != nil {
		return err
	}
	s.tasks = tasks
	return nil
}

// withFileLock runs fn while holding an advisory lock on the slot.
func (s *Store) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o750); err != nil {
		return fmt.Errorf("create slot directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lock.Close()

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN) }()

	return fn()
}

func (s *Store) read() ([]models.Task, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Task{}, nil
		}
		return nil, fmt.Errorf("read slot file: %w", err)
	}

	if strings.TrimSpace(string(content)) == "" {
		return []models.Task{}, nil
	}

	var tasks []models.Task
	if err := json.Unmarshal(content, &tasks); err != nil {
		return nil, fmt.Errorf("parse slot file: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *Store) write(tasks []models.Task) error {
	content, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal slot data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
