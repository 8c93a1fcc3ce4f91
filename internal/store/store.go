package store

import (
	"context"

	"github.com/strideworks/stride/internal/types"
)

// Store defines the interface contract for all persistence operations.
// Every read and write is scoped by the owning user where the data model
// requires it; a lookup that misses the user scope reports ErrNotFound
// without distinguishing "absent" from "not permitted".
type Store interface {
	CreateTask(ctx context.Context, userID, title string) (*types.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (*types.Task, error)
	ListTasks(ctx context.Context, userID string) ([]types.Task, error)
	UpdateTaskStatus(ctx context.Context, userID, taskID string, status types.TaskStatus) (*types.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error

	ActiveGoal(ctx context.Context, userID string) (*types.Goal, error)
	InsertGoal(ctx context.Context, goal types.Goal) (*types.Goal, error)
	UpdateGoal(ctx context.Context, goalID string, update types.GoalUpdate) (*types.Goal, error)

	FindSkill(ctx context.Context, userID, name string) (*types.Skill, error)
	InsertSkill(ctx context.Context, skill types.Skill) (*types.Skill, error)
	UpdateSkill(ctx context.Context, skill types.Skill) (*types.Skill, error)
	ListSkills(ctx context.Context, userID string) ([]types.Skill, error)

	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
