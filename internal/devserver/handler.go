package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/api"
	"github.com/BuzzLyutic/taskdeck/internal/model"
	"github.com/BuzzLyutic/taskdeck/pkg/respond"
)

type TaskHandler struct {
	store  Store
	logger *zap.Logger
	// tokens maps bearer tokens to the user they authenticate. Empty disables auth.
	tokens map[string]string
}

func NewTaskHandler(store Store, logger *zap.Logger, tokens map[string]string) *TaskHandler {
	return &TaskHandler{
		store:  store,
		logger: logger,
		tokens: tokens,
	}
}

func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		respond.JSON(w, r, http.StatusServiceUnavailable, api.Health{Status: "unhealthy", Database: "disconnected"})
		return
	}
	respond.JSON(w, r, http.StatusOK, api.Health{Status: "healthy", Database: "connected"})
}

// Authorize checks the bearer token against the {userID} path segment.
func (h *TaskHandler) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(h.tokens) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respond.Error(w, r, http.StatusUnauthorized, api.CodeNotAuthenticated, "Not authenticated")
			return
		}
		owner, known := h.tokens[token]
		if !known {
			respond.Error(w, r, http.StatusUnauthorized, api.CodeInvalidToken, "Invalid token")
			return
		}
		if owner != chi.URLParam(r, "userID") {
			respond.Error(w, r, http.StatusForbidden, api.CodeAccessDenied, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	sortBy, err := model.ParseSort(r.URL.Query().Get("sort"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	tasks, err := h.store.List(r.Context(), chi.URLParam(r, "userID"), filter, sortBy)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, api.CodeValidation, "empty request body")
		return
	}

	var req model.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, api.CodeValidation, fmt.Sprintf("invalid json: %v", err))
		return
	}
	req, err := req.Normalize()
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	task, err := h.store.Create(r.Context(), userID, req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/%s/tasks/%d", userID, task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.store.Get(r.Context(), chi.URLParam(r, "userID"), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req model.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, api.CodeValidation, "invalid json")
		return
	}
	req, err := req.Normalize()
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.store.Update(r.Context(), chi.URLParam(r, "userID"), id, req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.store.ToggleComplete(r.Context(), chi.URLParam(r, "userID"), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), chi.URLParam(r, "userID"), id); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.NoContent(w, r)
}

func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, r, http.StatusBadRequest, api.CodeValidation, "invalid task id")
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrorNotFound):
		detail := "Task not found"
		if id := chi.URLParam(r, "id"); id != "" {
			detail = fmt.Sprintf("Task %s not found", id)
		}
		respond.Error(w, r, http.StatusNotFound, api.CodeNotFound, detail)
	case errors.Is(err, model.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, api.CodeInternal, "Internal server error")
	}
}
