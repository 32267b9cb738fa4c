package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tasksync/internal/models"
	"tasksync/internal/store"
)

// ListTasks returns one page of tasks: GET /api/tasks?search=&page=1&limit=10.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := models.ListOptions{
		Search: r.URL.Query().Get("search"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", models.DefaultLimit),
	}

	result, err := h.store.ListTasks(ctx, opts)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	resp := listResponse{Items: make([]taskResponse, 0, len(result.Items)), Total: result.Total}
	for _, t := range result.Items {
		resp.Items = append(resp.Items, toResponse(t))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// CreateTask creates a new task from {"text": "..."}.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task := &models.Task{Text: payload.Text}
	if err := task.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateTask(ctx, task); err != nil {
		h.respondServerError(w, err)
		return
	}

	h.logger.Info("created task", "id", task.ID)
	h.respondJSON(w, http.StatusCreated, toResponse(*task))
}

// UpdateTask applies {"text"?, "completed"?} to an existing task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := parseID(r, "id")

	var update models.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.store.UpdateTask(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "Not found")
		case errors.Is(err, models.ErrTextRequired):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.respondServerError(w, err)
		}
		return
	}

	h.logger.Info("updated task", "id", task.ID)
	h.respondJSON(w, http.StatusOK, toResponse(*task))
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := parseID(r, "id")

	if err := h.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Not found")
			return
		}
		h.respondServerError(w, err)
		return
	}

	h.logger.Info("deleted task", "id", id)
	h.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
