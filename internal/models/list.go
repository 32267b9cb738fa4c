package models

import (
	"fmt"
	"math"
	"strings"
)

// DefaultLimit is the page size used when a list request does not specify one.
const DefaultLimit = 10

// MaxLimit caps the page size a caller may request.
const MaxLimit = 1000

// ListOptions controls search and pagination of a task listing.
type ListOptions struct {
	Search string
	Page   int
	Limit  int
}

// Normalize returns a copy with page and limit clamped to usable values.
func (o ListOptions) Normalize() ListOptions {
	o.Search = strings.TrimSpace(o.Search)
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// Skip returns the number of items to skip for the requested page,
// saturating at math.MaxInt.
func (o ListOptions) Skip() int {
	n := o.Normalize()
	if n.Page-1 > math.MaxInt/n.Limit {
		return math.MaxInt
	}
	return (n.Page - 1) * n.Limit
}

// ListResult is one page of tasks plus the total number of matches.
type ListResult struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}

// Filter selects which tasks are displayed.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter parses a filter name. An empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q: must be 'all', 'active', or 'completed'", s)
	}
}

// Match reports whether the task passes the filter.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Apply returns the tasks that pass the filter, preserving order.
// The input slice is not modified.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	switch f {
	case FilterAll:
		return FilterActive
	case FilterActive:
		return FilterCompleted
	default:
		return FilterAll
	}
}

// Remaining counts tasks that are not completed.
func Remaining(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}
