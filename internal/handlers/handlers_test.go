package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tasksync/internal/models"
	"tasksync/internal/store"
)

func setupTestHandlers(t *testing.T) (*Handlers, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h := New(s, nil)
	return h, s
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHomeHandler_ReportsOK(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	h.Home(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body map[string]bool
	decodeBody(t, rec, &body)
	if !body["ok"] {
		t.Errorf("expected ok=true, got %v", body)
	}
}

func TestDebugHandler_ReportsStore(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/debug", nil)
	rec := httptest.NewRecorder()

	h.Debug(rec, req)

	var body DebugData
	decodeBody(t, rec, &body)
	if !body.Connected {
		t.Errorf("expected connected store, got %+v", body)
	}
	if body.Store != store.DriverSQLite {
		t.Errorf("expected store %q, got %q", store.DriverSQLite, body.Store)
	}
}

func TestTestWriteHandler_GeneratesText(t *testing.T) {
	h, s := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/test-write", strings.NewReader(""))
	rec := httptest.NewRecorder()

	h.TestWrite(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	var body taskResponse
	decodeBody(t, rec, &body)
	if !strings.HasPrefix(body.Text, "test-") {
		t.Errorf("expected generated text, got %q", body.Text)
	}
	if _, err := s.GetTask(context.Background(), body.ID); err != nil {
		t.Errorf("expected task to be stored: %v", err)
	}
}

func TestTestReadHandler_ReturnsNewest(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		s.CreateTask(ctx, &models.Task{Text: "task", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	req := httptest.NewRequest("GET", "/api/test-read", nil)
	rec := httptest.NewRecorder()

	h.TestRead(rec, req)

	var body struct {
		Items []taskResponse `json:"items"`
	}
	decodeBody(t, rec, &body)
	if len(body.Items) != 20 {
		t.Fatalf("expected 20 items, got %d", len(body.Items))
	}
	if !body.Items[0].CreatedAt.After(body.Items[19].CreatedAt) {
		t.Errorf("expected newest first")
	}
}

func TestListTasksHandler_PaginatesAndSearches(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"alpha", "beta", "alphabet"} {
		s.CreateTask(ctx, &models.Task{Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	req := httptest.NewRequest("GET", "/api/tasks?search=ALPHA&page=1&limit=1", nil)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var body struct {
		Items []map[string]interface{} `json:"items"`
		Total int                      `json:"total"`
	}
	decodeBody(t, rec, &body)

	if body.Total != 2 {
		t.Errorf("expected total 2, got %d", body.Total)
	}
	if len(body.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(body.Items))
	}
	if body.Items[0]["text"] != "alphabet" {
		t.Errorf("expected newest match first, got %v", body.Items[0]["text"])
	}
	if _, ok := body.Items[0]["_id"]; !ok {
		t.Errorf("expected items to carry _id, got %v", body.Items[0])
	}
}

func TestListTasksHandler_InvalidNumbersUseDefaults(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/tasks?page=abc&limit=-1", nil)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestListTasksHandler_HugeLimitAndPage(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two"} {
		s.CreateTask(ctx, &models.Task{Text: text})
	}
	router := h.Router()

	tests := []struct {
		name      string
		query     string
		wantItems int
	}{
		{name: "huge limit is clamped", query: "limit=100000000000000", wantItems: 2},
		{name: "huge page is empty", query: "limit=100000000000000&page=9223372036854775807", wantItems: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/tasks?"+tt.query, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
			}
			var body struct {
				Items []map[string]interface{} `json:"items"`
				Total int                      `json:"total"`
			}
			decodeBody(t, rec, &body)
			if len(body.Items) != tt.wantItems {
				t.Errorf("expected %d items, got %d", tt.wantItems, len(body.Items))
			}
			if body.Total != 2 {
				t.Errorf("expected total 2, got %d", body.Total)
			}
		})
	}
}

func TestCreateTaskHandler_Success(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(`{"text":"  New task  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var body taskResponse
	decodeBody(t, rec, &body)
	if body.ID == "" {
		t.Error("expected _id to be set")
	}
	if body.Text != "New task" {
		t.Errorf("expected trimmed text, got %q", body.Text)
	}
	if body.Completed {
		t.Error("expected new task to be incomplete")
	}
}

func TestCreateTaskHandler_ValidationError(t *testing.T) {
	h, _ := setupTestHandlers(t)

	for _, payload := range []string{`{"text":""}`, `{"text":"   "}`, `{}`} {
		req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(payload))
		rec := httptest.NewRecorder()

		h.CreateTask(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", payload, http.StatusBadRequest, rec.Code)
		}
		var body map[string]string
		decodeBody(t, rec, &body)
		if body["error"] != "text is required" {
			t.Errorf("%s: expected error message, got %v", payload, body)
		}
	}
}

func TestCreateTaskHandler_InvalidJSON(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(`{`))
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUpdateTaskHandler_Success(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	task := &models.Task{Text: "Original"}
	s.CreateTask(ctx, task)

	req := httptest.NewRequest("PUT", "/api/tasks/"+task.ID, strings.NewReader(`{"completed":true}`))
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, withID(req, task.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var body taskResponse
	decodeBody(t, rec, &body)
	if !body.Completed || body.Text != "Original" {
		t.Errorf("unexpected updated task: %+v", body)
	}
}

func TestUpdateTaskHandler_NotFound(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("PUT", "/api/tasks/missing", strings.NewReader(`{"completed":true}`))
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, withID(req, "missing"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDeleteTaskHandler_Success(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	task := &models.Task{Text: "Doomed"}
	s.CreateTask(ctx, task)

	req := httptest.NewRequest("DELETE", "/api/tasks/"+task.ID, nil)
	rec := httptest.NewRecorder()

	h.DeleteTask(rec, withID(req, task.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var body map[string]bool
	decodeBody(t, rec, &body)
	if !body["success"] {
		t.Errorf("expected success=true, got %v", body)
	}

	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected task to be deleted, got %v", err)
	}
}

func TestDeleteTaskHandler_NotFound(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("DELETE", "/api/tasks/missing", nil)
	rec := httptest.NewRecorder()

	h.DeleteTask(rec, withID(req, "missing"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRouter_TaskRoundTrip(t *testing.T) {
	h, _ := setupTestHandlers(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json", strings.NewReader(`{"text":"via router"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if body.Total != 1 || body.Items[0].Text != "via router" {
		t.Errorf("unexpected list: %+v", body)
	}
}
