package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/auth"
	"github.com/dayloop/planner/internal/service"
)

// TaskHandler exposes the planner task CRUD. Every route sits behind
// RequireAuth, so the identity is always in the context.
type TaskHandler struct {
	svc    *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		logger: logger,
	}
}

type taskRequest struct {
	Title string     `json:"title"`
	Note  string     `json:"note"`
	DueAt *time.Time `json:"dueAt,omitempty"`
	Done  bool       `json:"done"`
}

// HandleCreate creates a task.
//
// HTTP: POST /api/tasks
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	task, err := h.svc.Create(r.Context(), identity.UserID, req.Title, req.Note, req.DueAt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// HandleList lists the caller's tasks.
//
// HTTP: GET /api/tasks?limit=20&offset=0
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tasks, err := h.svc.List(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// HandleGet returns one task.
//
// HTTP: GET /api/tasks/{id}
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	taskID, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := h.svc.Get(r.Context(), identity.UserID, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// HandleUpdate replaces a task's fields.
//
// HTTP: PUT /api/tasks/{id}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	taskID, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	task, err := h.svc.Update(r.Context(), identity.UserID, taskID, req.Title, req.Note, req.DueAt, req.Done)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

type doneRequest struct {
	Done bool `json:"done"`
}

// HandleSetDone toggles completion without touching the other fields.
//
// HTTP: PATCH /api/tasks/{id}/done
func (h *TaskHandler) HandleSetDone(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	taskID, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req doneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	task, err := h.svc.SetDone(r.Context(), identity.UserID, taskID, req.Done)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	taskID, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), identity.UserID, taskID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "id must be a positive integer")
	}
	return id, nil
}
