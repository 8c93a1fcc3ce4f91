package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/strideworks/stride/internal/completion"
	"github.com/strideworks/stride/internal/cover"
	"github.com/strideworks/stride/internal/estimator"
	"github.com/strideworks/stride/internal/goals"
	"github.com/strideworks/stride/internal/store"
	"github.com/strideworks/stride/internal/types"
)

const testAPIKey = "test-api-key"

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "stride.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	est := estimator.New("", "", 0, 0) // static fallback estimator
	goalSvc := goals.NewService(st)
	completionSvc := completion.NewService(st, est)

	h := NewHandler(st, completionSvc, goalSvc, est, &cover.NoopUploader{}, testAPIKey, "test")
	return NewRouter(h)
}

// doRequest performs an authenticated request as user-1.
func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(UserIDHeader, "user-1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody[types.HealthResponse](t, rec)
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.EstimatorMode != "fallback" {
		t.Errorf("estimator_mode = %q, want fallback", resp.EstimatorMode)
	}
}

func TestTasks_CreateAndList(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "Write report"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[types.Task](t, rec)
	if created.Title != "Write report" || created.Status != types.TaskOpen {
		t.Errorf("unexpected task: %+v", created)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decodeBody[types.TaskListResponse](t, rec)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != created.ID {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestTasks_EmptyListIsArray(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tasks":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestCreateTask_InvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(UserIDHeader, "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q, want problem+json", ct)
	}
}

func TestCreateTask_EmptyTitle(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	resp := decodeBody[ProblemWithErrors](t, rec)
	if len(resp.Errors) != 1 || resp.Errors[0].Field != "title" {
		t.Errorf("unexpected errors: %+v", resp.Errors)
	}
}

func TestDeleteTask(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "Ephemeral"})
	created := decodeBody[types.Task](t, rec)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/tasks/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/tasks/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDeleteTask_InvalidID(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/tasks/not-a-ulid", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCompleteTask_WithGoal(t *testing.T) {
	router := newTestRouter(t)

	// Seed a goal with known metrics
	rec := doRequest(t, router, http.MethodPut, "/api/v1/goal", types.GoalInput{
		Title:        "Salary goal",
		CurrentValue: "$2,000",
		TargetValue:  "$10,000",
		Progress:     floatPtr(20),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("goal upsert status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "Ask for raise"})
	task := decodeBody[types.Task](t, rec)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[types.CompletionResult](t, rec)

	if result.Task.Status != types.TaskDone {
		t.Errorf("task status = %s, want done", result.Task.Status)
	}
	if result.Goal == nil {
		t.Fatal("expected goal in result")
	}
	// Static estimator contributes its fixed 1 percent
	if result.Goal.Progress != 21 {
		t.Errorf("progress = %v, want 21", result.Goal.Progress)
	}
	if result.Skill == nil || result.Skill.Name != estimator.DefaultSkillName {
		t.Errorf("expected default skill, got %+v", result.Skill)
	}
}

func TestCompleteTask_NoGoal(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "Standalone"})
	task := decodeBody[types.Task](t, rec)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d", rec.Code)
	}
	result := decodeBody[types.CompletionResult](t, rec)
	if result.Goal != nil || result.Skill != nil {
		t.Errorf("expected task-only result, got %+v", result)
	}
}

func TestCompleteTask_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks/01HQXW5P8NFYZ3VJT2M4K6R7SB/complete", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCompleteTask_ForeignTask(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "Mine"})
	task := decodeBody[types.Task](t, rec)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(UserIDHeader, "user-2")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)

	if rec2.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec2.Code)
	}
}

func TestGoal_GetBeforeUpsert(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/goal", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGoal_UpsertAndGet(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/goal", types.GoalInput{
		Title: "Learn piano",
		Notes: "practice 300 hours",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", rec.Code, rec.Body.String())
	}
	goal := decodeBody[types.Goal](t, rec)
	if goal.Title != "Learn piano" {
		t.Errorf("title = %q", goal.Title)
	}
	if goal.TargetValue != "300" {
		t.Errorf("expected derived target 300, got %q", goal.TargetValue)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/goal", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	fetched := decodeBody[types.Goal](t, rec)
	if fetched.ID != goal.ID {
		t.Errorf("expected same goal, got %q vs %q", fetched.ID, goal.ID)
	}
}

func TestGoal_UpsertProgressOutOfRange(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/goal", types.GoalInput{Progress: floatPtr(250)})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCover_NotConfigured(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/goal/cover", strings.NewReader("image bytes"))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(UserIDHeader, "user-1")
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSkills_EmptyListIsArray(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/skills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"skills":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestSkills_ListAfterCompletion(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPut, "/api/v1/goal", types.GoalInput{Title: "Goal"})
	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", types.NewTaskRequest{Title: "Task"})
	task := decodeBody[types.Task](t, rec)
	doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", nil)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/skills", nil)
	list := decodeBody[types.SkillListResponse](t, rec)
	if len(list.Skills) != 1 {
		t.Fatalf("expected one skill, got %+v", list.Skills)
	}
	if list.Skills[0].Name != estimator.DefaultSkillName {
		t.Errorf("skill name = %q", list.Skills[0].Name)
	}
}

func floatPtr(v float64) *float64 { return &v }
