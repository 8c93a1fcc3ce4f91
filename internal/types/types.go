package types

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

// Task represents a single to-do item owned by one user.
type Task struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Goal represents the user's long-term "Big Goal". At most one visible goal
// per user is in active use; selection is by most recent creation time.
type Goal struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Notes         string    `json:"notes"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Visible       bool      `json:"visible"`
	Progress      float64   `json:"progress"`
	CurrentLabel  string    `json:"current_label"`
	CurrentValue  string    `json:"current_value"`
	TargetLabel   string    `json:"target_label"`
	TargetValue   string    `json:"target_value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GoalUpdate is a partial update applied to an existing goal.
// Nil pointer fields are left untouched.
type GoalUpdate struct {
	Title         *string
	Notes         *string
	CoverImageURL *string
	Progress      *float64
	CurrentLabel  *string
	CurrentValue  *string
	TargetLabel   *string
	TargetValue   *string
}

// GoalInput is the external input for the goal-setting pathway.
// String fields are trimmed and empty values are treated as absent.
type GoalInput struct {
	Title         string   `json:"title,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	CoverImageURL string   `json:"cover_image_url,omitempty"`
	CurrentLabel  string   `json:"current_label,omitempty"`
	CurrentValue  string   `json:"current_value,omitempty"`
	TargetLabel   string   `json:"target_label,omitempty"`
	TargetValue   string   `json:"target_value,omitempty"`
	Progress      *float64 `json:"progress,omitempty"`
}

// Skill tracks a user's progression in one named skill. Names are matched
// case-insensitively but stored with their original casing.
type Skill struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Progress  float64   `json:"progress"`
	Points    int       `json:"points"`
	Level     int       `json:"level"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImpactEstimate is the bounded contribution of one completed task toward
// the active goal. Percent is always within [0.1, 10] and ValueDelta is
// never negative, whether estimated or synthesized by the fallback path.
type ImpactEstimate struct {
	Percent    float64 `json:"percent"`
	ValueDelta float64 `json:"value_delta"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// SkillImpact names the single skill a completed task develops and by how
// much. Delta is always within [0.5, 20].
type SkillImpact struct {
	Name  string  `json:"name"`
	Delta float64 `json:"delta"`
	Icon  string  `json:"icon,omitempty"`
}

// CompletionResult is the composite outcome of completing a task.
// Goal, Impact and Skill are nil when the corresponding step did not run.
// Warnings carries best-effort failures (skill tracking) that never fail
// the completion itself.
type CompletionResult struct {
	Task     *Task           `json:"task"`
	Goal     *Goal           `json:"goal,omitempty"`
	Impact   *ImpactEstimate `json:"impact,omitempty"`
	Skill    *Skill          `json:"skill,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// NewTaskRequest is the payload for creating a task.
type NewTaskRequest struct {
	Title string `json:"title"`
}

// TaskListResponse wraps the task listing payload.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// SkillListResponse wraps the skill listing payload.
type SkillListResponse struct {
	Skills []Skill `json:"skills"`
}

// CoverURLResponse carries a presigned cover image download URL.
type CoverURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	EstimatorMode string `json:"estimator_mode"`
	TaskCount     int64  `json:"task_count"`
	SkillCount    int64  `json:"skill_count"`
}

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	TaskCount  int64 `json:"task_count"`
	GoalCount  int64 `json:"goal_count"`
	SkillCount int64 `json:"skill_count"`
}

// MarshalJSON ensures a nil task slice marshals as [] not null.
func (r TaskListResponse) MarshalJSON() ([]byte, error) {
	if r.Tasks == nil {
		r.Tasks = []Task{}
	}
	type Alias TaskListResponse
	return json.Marshal(Alias(r))
}

// MarshalJSON ensures a nil skill slice marshals as [] not null.
func (r SkillListResponse) MarshalJSON() ([]byte, error) {
	if r.Skills == nil {
		r.Skills = []Skill{}
	}
	type Alias SkillListResponse
	return json.Marshal(Alias(r))
}
