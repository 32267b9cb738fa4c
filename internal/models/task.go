package models

import (
	"errors"
	"strings"
	"time"
)

// ErrTextRequired is returned when a task has no text after trimming.
var ErrTextRequired = errors.New("text is required")

// Task represents a single task. ID is opaque and only unique within the
// source that assigned it.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrTextRequired
	}
	return nil
}

// SameText reports whether two tasks are considered the same logical task
// across sources. Comparison is exact and case-sensitive.
func (t Task) SameText(other Task) bool {
	return t.Text == other.Text
}

// TaskUpdate holds the fields of a partial update. Nil fields are left unchanged.
type TaskUpdate struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty returns true if the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Text == nil && u.Completed == nil
}

// Apply returns a copy of t with the update applied.
func (u TaskUpdate) Apply(t Task) Task {
	if u.Text != nil {
		t.Text = strings.TrimSpace(*u.Text)
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	return t
}

// SetCompleted builds an update that only changes the completion flag.
func SetCompleted(completed bool) TaskUpdate {
	return TaskUpdate{Completed: &completed}
}

// FindByID returns the task with the given id and whether it was found.
func FindByID(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// ContainsText reports whether any task in tasks has exactly the given text.
func ContainsText(tasks []Task, text string) bool {
	for _, t := range tasks {
		if t.Text == text {
			return true
		}
	}
	return false
}
