// Package remote provides the HTTP client for the task API. It keeps a cached
// copy of the last known task list that mirrors every successful call.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasksync/internal/models"
)

// wireTask accepts both the document-store "_id" and a plain "id".
type wireTask struct {
	DocID     string    `json:"_id"`
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireTask) normalize() models.Task {
	id := w.DocID
	if id == "" {
		id = w.ID
	}
	return models.Task{ID: id, Text: w.Text, Completed: w.Completed, CreatedAt: w.CreatedAt}
}

type wireList struct {
	Items []wireTask `json:"items"`
	Total int        `json:"total"`
}

// Client talks to the task API and caches the latest known task list.
// Concurrent completions overwrite the cache in completion order.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time

	mu      sync.Mutex
	tasks   []models.Task
	loading int
	err     error
}

// New creates a Client for the API rooted at baseURL (e.g. http://localhost:4000/api).
// A nil httpClient uses a client with a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		now:     time.Now,
	}
}

// Tasks returns a copy of the cached task list.
func (c *Client) Tasks() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Loading reports whether a list call is in flight.
func (c *Client) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// Err returns the error of the most recent list call, or nil.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// List fetches one page of tasks and replaces the cache with it.
func (c *Client) List(ctx context.Context, opts models.ListOptions) (models.ListResult, error) {
	c.mu.Lock()
	c.loading++
	c.err = nil
	c.mu.Unlock()

	result, err := c.list(ctx, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	if err != nil {
		c.err = err
		return models.ListResult{}, err
	}
	c.tasks = result.Items
	return result, nil
}

func (c *Client) list(ctx context.Context, opts models.ListOptions) (models.ListResult, error) {
	opts = opts.Normalize()
	params := url.Values{}
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("limit", strconv.Itoa(opts.Limit))
	// Cache buster, so intermediaries never serve a stale list.
	params.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))
	if opts.Search != "" {
		params.Set("search", opts.Search)
	}

	var body wireList
	if err := c.do(ctx, "list tasks", http.MethodGet, "/tasks?"+params.Encode(), nil, "", &body); err != nil {
		return models.ListResult{}, err
	}

	items := make([]models.Task, 0, len(body.Items))
	for _, w := range body.Items {
		items = append(items, w.normalize())
	}
	return models.ListResult{Items: items, Total: body.Total}, nil
}

// Create adds a task and prepends it to the cache.
func (c *Client) Create(ctx context.Context, text string) (models.Task, error) {
	var w wireTask
	payload := map[string]string{"text": text}
	if err := c.do(ctx, "create task", http.MethodPost, "/tasks", payload, "", &w); err != nil {
		return models.Task{}, err
	}

	task := w.normalize()
	c.mu.Lock()
	c.tasks = append([]models.Task{task}, c.tasks...)
	c.mu.Unlock()
	return task, nil
}

// Update applies a partial update and replaces the cached task.
func (c *Client) Update(ctx context.Context, id string, update models.TaskUpdate) (models.Task, error) {
	var w wireTask
	if err := c.do(ctx, "update task", http.MethodPut, "/tasks/"+url.PathEscape(id), update, id, &w); err != nil {
		return models.Task{}, err
	}

	task := w.normalize()
	c.mu.Lock()
	for i := range c.tasks {
		if c.tasks[i].ID == task.ID {
			c.tasks[i] = task
		}
	}
	c.mu.Unlock()
	return task, nil
}

// Delete removes a task and drops it from the cache.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, "delete task", http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, id, nil); err != nil {
		return err
	}

	c.mu.Lock()
	kept := c.tasks[:0:0]
	for _, t := range c.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.tasks = kept
	c.mu.Unlock()
	return nil
}

// do performs a request and decodes a JSON response into out (if non-nil).
// id is used for NotFoundError.
func (c *Client) do(ctx context.Context, op, method, path string, in interface{}, id string, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(resp.Body)
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return &ValidationError{Message: msg}
		case http.StatusNotFound:
			return &NotFoundError{ID: id}
		default:
			return &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a response body, falling back to the raw text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return err.Error()
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return "request failed"
}
