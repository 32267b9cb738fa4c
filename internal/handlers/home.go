package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tasksync/internal/models"
)

// Home reports that the server is up.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DebugData describes the store connection for troubleshooting.
type DebugData struct {
	Connected bool   `json:"connected"`
	Store     string `json:"store"`
	Error     string `json:"error,omitempty"`
}

// Debug reports whether the backing store is reachable.
func (h *Handlers) Debug(w http.ResponseWriter, r *http.Request) {
	data := DebugData{Connected: true, Store: h.store.Name()}
	if err := h.store.Ping(r.Context()); err != nil {
		data.Connected = false
		data.Error = err.Error()
	}
	h.respondJSON(w, http.StatusOK, data)
}

// TestRead returns the 20 newest tasks: GET /api/test-read.
func (h *Handlers) TestRead(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.ListTasks(r.Context(), models.ListOptions{Page: 1, Limit: 20})
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	items := make([]taskResponse, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, toResponse(t))
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// TestWrite stores a diagnostic task: POST /api/test-write. An empty or missing
// body uses a generated text.
func (h *Handlers) TestWrite(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	if strings.TrimSpace(payload.Text) == "" {
		payload.Text = fmt.Sprintf("test-%d", time.Now().UnixMilli())
	}

	task := &models.Task{Text: payload.Text}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.respondServerError(w, err)
		return
	}
	h.logger.Debug("test write created task", "id", task.ID)
	h.respondJSON(w, http.StatusCreated, toResponse(*task))
}
