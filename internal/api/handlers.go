package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strideworks/stride/internal/completion"
	"github.com/strideworks/stride/internal/cover"
	"github.com/strideworks/stride/internal/estimator"
	"github.com/strideworks/stride/internal/goals"
	"github.com/strideworks/stride/internal/store"
	"github.com/strideworks/stride/internal/types"
	"github.com/strideworks/stride/internal/validation"
)

// maxCoverUploadBytes bounds cover image uploads (8 MiB).
const maxCoverUploadBytes = 8 << 20

// Handler implements the API handlers
type Handler struct {
	store      store.Store
	completion *completion.Service
	goals      *goals.Service
	estimator  estimator.Estimator
	cover      cover.Uploader
	apiKey     string
	version    string
}

// NewHandler creates a new Handler wired to the domain services.
func NewHandler(s store.Store, c *completion.Service, g *goals.Service, e estimator.Estimator, cv cover.Uploader, apiKey, version string) *Handler {
	return &Handler{
		store:      s,
		completion: c,
		goals:      g,
		estimator:  e,
		cover:      cv,
		apiKey:     apiKey,
		version:    version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		EstimatorMode: h.estimator.Mode(),
		TaskCount:     stats.TaskCount,
		SkillCount:    stats.SkillCount,
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTasks handles GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	tasks, err := h.store.ListTasks(r.Context(), userID)
	if err != nil {
		slog.Error("list tasks failed", "error", err, "user_id", userID)
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.TaskListResponse{Tasks: tasks})
}

// CreateTask handles POST /api/v1/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req types.NewTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.TaskTitle(req.Title); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	task, err := h.store.CreateTask(r.Context(), userID, strings.TrimSpace(req.Title))
	if err != nil {
		slog.Error("create task failed", "error", err, "user_id", userID)
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "id")

	if err := validation.ValidateULID("id", taskID); err != nil {
		WriteProblemWithErrors(w, r, "Invalid task ID", []validation.ValidationError{*err})
		return
	}

	if err := h.store.DeleteTask(r.Context(), userID, taskID); err != nil {
		MapError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles POST /api/v1/tasks/{id}/complete
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "id")

	if err := validation.ValidateULID("id", taskID); err != nil {
		WriteProblemWithErrors(w, r, "Invalid task ID", []validation.ValidationError{*err})
		return
	}

	result, err := h.completion.Complete(r.Context(), userID, taskID)
	if err != nil {
		slog.Error("complete task failed", "error", err, "user_id", userID, "task_id", taskID)
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetGoal handles GET /api/v1/goal
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	goal, err := h.goals.Active(r.Context(), userID)
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// UpsertGoal handles PUT /api/v1/goal
func (h *Handler) UpsertGoal(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var input types.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.GoalInput(input); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	goal, err := h.goals.Upsert(r.Context(), userID, input)
	if err != nil {
		slog.Error("upsert goal failed", "error", err, "user_id", userID)
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// UploadCover handles POST /api/v1/goal/cover. The request body is the
// raw image; the stored object key goes onto the goal and a pre-signed
// download URL comes back.
func (h *Handler) UploadCover(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	body := http.MaxBytesReader(w, r.Body, maxCoverUploadBytes)
	key, err := h.cover.Upload(r.Context(), userID, body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("cover upload failed", "error", err, "user_id", userID)
		MapError(w, r, err)
		return
	}

	url, expiry, err := h.cover.PresignedURL(r.Context(), key)
	if err != nil {
		MapError(w, r, err)
		return
	}

	if _, err := h.goals.SetCoverImage(r.Context(), userID, key); err != nil {
		slog.Error("record cover on goal failed", "error", err, "user_id", userID)
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, types.CoverURLResponse{URL: url, ExpiresAt: expiry})
}

// CoverURL handles GET /api/v1/goal/cover
func (h *Handler) CoverURL(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	goal, err := h.goals.Active(r.Context(), userID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if goal.CoverImageURL == "" {
		WriteProblem(w, r, http.StatusNotFound, "Goal has no cover image")
		return
	}

	url, expiry, err := h.cover.PresignedURL(r.Context(), goal.CoverImageURL)
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.CoverURLResponse{URL: url, ExpiresAt: expiry})
}

// ListSkills handles GET /api/v1/skills
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	skills, err := h.store.ListSkills(r.Context(), userID)
	if err != nil {
		slog.Error("list skills failed", "error", err, "user_id", userID)
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.SkillListResponse{Skills: skills})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
