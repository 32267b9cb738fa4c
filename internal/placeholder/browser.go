package placeholder

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrClosed is returned by Load after Close.
var ErrClosed = errors.New("browser closed")

// Fetcher loads one page of posts.
type Fetcher interface {
	Posts(ctx context.Context, page, limit int) ([]Post, error)
}

// Browser accumulates pages of posts. Only the most recent Load may change
// its state; an earlier fetch still in flight is cancelled and its result dropped.
type Browser struct {
	fetcher Fetcher
	limit   int

	mu      sync.Mutex
	items   []Post
	page    int
	loading bool
	err     error
	cancel  context.CancelFunc
	gen     uint64
	closed  bool
}

// NewBrowser creates an empty Browser fetching limit posts per page.
func NewBrowser(f Fetcher, limit int) *Browser {
	if limit < 1 {
		limit = DefaultPageSize
	}
	return &Browser{fetcher: f, limit: limit}
}

// Load fetches page. Page 1 replaces the accumulated posts, later pages are
// appended. A superseded or closed load returns context.Canceled.
func (b *Browser) Load(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.cancel != nil {
		b.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	b.gen++
	gen := b.gen
	b.cancel = cancel
	b.loading = true
	b.err = nil
	b.mu.Unlock()

	posts, err := b.fetcher.Posts(fetchCtx, page, b.limit)

	b.mu.Lock()
	defer b.mu.Unlock()
	cancel()
	if gen != b.gen || b.closed {
		return context.Canceled
	}
	b.cancel = nil
	b.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		b.err = err
		return err
	}

	if page == 1 {
		b.items = posts
	} else {
		b.items = append(b.items, posts...)
	}
	b.page = page
	return nil
}

// LoadMore fetches the page after the last one loaded.
func (b *Browser) LoadMore(ctx context.Context) error {
	return b.Load(ctx, b.Page()+1)
}

// Refresh clears the posts and reloads page 1.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.items = nil
	b.page = 0
	b.mu.Unlock()
	return b.Load(ctx, 1)
}

// Close cancels any in-flight fetch. Later loads fail with ErrClosed.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.loading = false
}

// Items returns the accumulated posts.
func (b *Browser) Items() []Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Post, len(b.items))
	copy(out, b.items)
	return out
}

// Filter returns posts whose title or body contains query, ignoring case.
func (b *Browser) Filter(query string) []Post {
	items := b.Items()
	q := strings.ToLower(query)
	if q == "" {
		return items
	}
	out := make([]Post, 0, len(items))
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Body), q) {
			out = append(out, p)
		}
	}
	return out
}

// Page returns the last page loaded, 0 before the first load.
func (b *Browser) Page() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// Loading reports whether a fetch is in flight.
func (b *Browser) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Err returns the error of the last completed fetch.
func (b *Browser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
