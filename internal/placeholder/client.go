// Package placeholder browses the public JSONPlaceholder posts feed.
// It is a demo surface and does not touch tasks.
package placeholder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public JSONPlaceholder service.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// DefaultPageSize is the number of posts fetched per page.
const DefaultPageSize = 10

// Post is one JSONPlaceholder post.
type Post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Client fetches posts.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL and a nil
// httpClient uses one with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Posts fetches one page of posts.
func (c *Client) Posts(ctx context.Context, page, limit int) ([]Post, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	params := url.Values{}
	params.Set("_page", strconv.Itoa(page))
	params.Set("_limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/posts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build posts request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch posts: unexpected status %d", resp.StatusCode)
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}
