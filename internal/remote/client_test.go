package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/handlers"
	"tasksync/internal/models"
	"tasksync/internal/store"
)

// newTestAPI starts the real task API over an in-memory store.
func newTestAPI(t *testing.T) *Client {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(handlers.New(s, nil).Router())
	t.Cleanup(srv.Close)

	return New(srv.URL+"/api", srv.Client())
}

func TestClient_CreateAndList(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	created, err := c.Create(ctx, "Write tests")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "store-assigned id should be normalized from _id")
	assert.Equal(t, "Write tests", created.Text)
	assert.False(t, created.Completed)

	assert.Len(t, c.Tasks(), 1, "create should prepend to the cache")

	result, err := c.List(ctx, models.ListOptions{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, created.ID, result.Items[0].ID)
	assert.Equal(t, result.Items, c.Tasks())
}

func TestClient_CreateEmptyTextIsValidationError(t *testing.T) {
	c := newTestAPI(t)

	_, err := c.Create(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, IsValidation(err), "expected ValidationError, got %T", err)
	assert.Empty(t, c.Tasks())
}

func TestClient_UpdateReplacesCachedTask(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	a, err := c.Create(ctx, "A")
	require.NoError(t, err)
	b, err := c.Create(ctx, "B")
	require.NoError(t, err)

	updated, err := c.Update(ctx, a.ID, models.SetCompleted(true))
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	cached := c.Tasks()
	got, ok := models.FindByID(cached, a.ID)
	require.True(t, ok)
	assert.True(t, got.Completed)
	other, ok := models.FindByID(cached, b.ID)
	require.True(t, ok)
	assert.False(t, other.Completed, "other tasks must be unchanged")
}

func TestClient_UpdateAndDeleteUnknownIDAreNotFound(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	_, err := c.Update(ctx, "missing", models.SetCompleted(true))
	assert.True(t, IsNotFound(err), "expected NotFoundError, got %v", err)

	err = c.Delete(ctx, "missing")
	assert.True(t, IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestClient_DeleteRemovesFromCache(t *testing.T) {
	c := newTestAPI(t)
	ctx := context.Background()

	a, err := c.Create(ctx, "A")
	require.NoError(t, err)
	_, err = c.Create(ctx, "B")
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, a.ID))

	cached := c.Tasks()
	assert.Len(t, cached, 1)
	assert.Equal(t, "B", cached[0].Text)
}

func TestClient_ServerErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"database down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	_, err := c.List(context.Background(), models.ListOptions{})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Contains(t, err.Error(), "database down")
	assert.Equal(t, err, c.Err(), "list failures are recorded")
	assert.False(t, c.Loading())
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, nil)
	_, err := c.Create(context.Background(), "offline")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestClient_ListSendsQuery(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{"page": q.Get("page"), "limit": q.Get("limit"), "search": q.Get("search"), "_": q.Get("_")}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"plain-id","text":"x","completed":true}],"total":7}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	result, err := c.List(context.Background(), models.ListOptions{Search: "milk", Page: 2, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "2", got["page"])
	assert.Equal(t, "5", got["limit"])
	assert.Equal(t, "milk", got["search"])
	assert.NotEmpty(t, got["_"])
	assert.Equal(t, 7, result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "plain-id", result.Items[0].ID, "plain id is accepted when _id is absent")
}
