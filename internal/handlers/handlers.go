package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tasksync/internal/models"
	"tasksync/internal/store"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a new Handlers instance. A nil logger discards output.
func New(s store.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handlers{
		store:  s,
		logger: logger,
	}
}

// taskResponse is the wire form of a task. The id is sent as "_id", the
// document-store field name clients already understand.
type taskResponse struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(t models.Task) taskResponse {
	return taskResponse{ID: t.ID, Text: t.Text, Completed: t.Completed, CreatedAt: t.CreatedAt}
}

type listResponse struct {
	Items []taskResponse `json:"items"`
	Total int            `json:"total"`
}

// parseID extracts the task id from URL parameters.
func parseID(r *http.Request, param string) string {
	return chi.URLParam(r, param)
}

// queryInt parses an integer query parameter, returning def when absent or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// respondJSON writes v as a JSON body with the given status.
func (h *Handlers) respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// respondError sends an error response.
func (h *Handlers) respondError(w http.ResponseWriter, code int, message string) {
	h.respondJSON(w, code, map[string]string{"error": message})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.logger.Error("internal server error", "error", err)
	h.respondError(w, http.StatusInternalServerError, err.Error())
}
