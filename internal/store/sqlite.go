package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/strideworks/stride/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed persistence layer for tasks, goals and
// skills.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable pragmas for performance and safety
	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	// Run goose migrations
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Tasks ---

const taskColumns = "id, user_id, title, status, created_at, updated_at"

// CreateTask inserts a new open task for the user.
func (s *SQLiteStore) CreateTask(ctx context.Context, userID, title string) (*types.Task, error) {
	now := time.Now().UTC()
	task := types.Task{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Title:     title,
		Status:    types.TaskOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task.ID, task.UserID, task.Title, string(task.Status),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return &task, nil
}

// GetTask retrieves a task by ID scoped to its owner.
// Returns ErrNotFound when the task does not exist for that user.
func (s *SQLiteStore) GetTask(ctx context.Context, userID, taskID string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE id = ? AND user_id = ?
	`, taskID, userID)

	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	return task, nil
}

// ListTasks returns all tasks for a user, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTaskStatus sets the status of a task scoped to its owner and
// returns the updated row. Returns ErrNotFound when no row matched.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, userID, taskID string, status types.TaskStatus) (*types.Task, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, string(status), now, taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetTask(ctx, userID, taskID)
}

// DeleteTask removes a task scoped to its owner.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = ? AND user_id = ?
	`, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// --- Goals ---

const goalColumns = "id, user_id, title, notes, cover_image_url, visible, progress, " +
	"current_label, current_value, target_label, target_value, created_at, updated_at"

// ActiveGoal returns the user's most recently created visible goal.
// Uniqueness of the visible flag is not enforced here; the most recent row
// wins. Returns ErrNotFound when the user has no visible goal.
func (s *SQLiteStore) ActiveGoal(ctx context.Context, userID string) (*types.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE user_id = ? AND visible = 1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID)

	goal, err := scanGoal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}

	return goal, nil
}

// InsertGoal stores a new goal, assigning ID and timestamps.
func (s *SQLiteStore) InsertGoal(ctx context.Context, goal types.Goal) (*types.Goal, error) {
	now := time.Now().UTC()
	goal.ID = ulid.Make().String()
	goal.CreatedAt = now
	goal.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (
			id, user_id, title, notes, cover_image_url, visible, progress,
			current_label, current_value, target_label, target_value,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, goal.ID, goal.UserID, goal.Title, goal.Notes, goal.CoverImageURL,
		boolToInt(goal.Visible), goal.Progress,
		goal.CurrentLabel, goal.CurrentValue, goal.TargetLabel, goal.TargetValue,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}

	return &goal, nil
}

// UpdateGoal applies a partial update to a goal by ID and returns the
// updated row. Nil fields in the update are left untouched.
func (s *SQLiteStore) UpdateGoal(ctx context.Context, goalID string, update types.GoalUpdate) (*types.Goal, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Title != nil {
		appendSet("title", *update.Title)
	}
	if update.Notes != nil {
		appendSet("notes", *update.Notes)
	}
	if update.CoverImageURL != nil {
		appendSet("cover_image_url", *update.CoverImageURL)
	}
	if update.Progress != nil {
		appendSet("progress", *update.Progress)
	}
	if update.CurrentLabel != nil {
		appendSet("current_label", *update.CurrentLabel)
	}
	if update.CurrentValue != nil {
		appendSet("current_value", *update.CurrentValue)
	}
	if update.TargetLabel != nil {
		appendSet("target_label", *update.TargetLabel)
	}
	if update.TargetValue != nil {
		appendSet("target_value", *update.TargetValue)
	}

	args = append(args, goalID)
	result, err := s.db.ExecContext(ctx,
		"UPDATE goals SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE id = ?", goalID)
	goal, err := scanGoal(row)
	if err != nil {
		return nil, fmt.Errorf("scan goal: %w", err)
	}

	return goal, nil
}

// --- Skills ---

const skillColumns = "id, user_id, name, progress, points, level, icon, created_at, updated_at"

// FindSkill looks up a skill by name for a user. Matching is
// case-insensitive; the stored casing is preserved.
func (s *SQLiteStore) FindSkill(ctx context.Context, userID, name string) (*types.Skill, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+skillColumns+` FROM skills
		WHERE user_id = ? AND name = ? COLLATE NOCASE
		LIMIT 1
	`, userID, name)

	skill, err := scanSkill(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan skill: %w", err)
	}

	return skill, nil
}

// InsertSkill stores a new skill, assigning ID and timestamps.
func (s *SQLiteStore) InsertSkill(ctx context.Context, skill types.Skill) (*types.Skill, error) {
	now := time.Now().UTC()
	skill.ID = ulid.Make().String()
	skill.CreatedAt = now
	skill.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skills (id, user_id, name, progress, points, level, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, skill.ID, skill.UserID, skill.Name, skill.Progress, skill.Points,
		skill.Level, skill.Icon, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert skill: %w", err)
	}

	return &skill, nil
}

// UpdateSkill persists the accumulated progress, points, level and icon of
// an existing skill, scoped by ID and owner.
func (s *SQLiteStore) UpdateSkill(ctx context.Context, skill types.Skill) (*types.Skill, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE skills SET progress = ?, points = ?, level = ?, icon = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, skill.Progress, skill.Points, skill.Level, skill.Icon,
		now.Format(time.RFC3339), skill.ID, skill.UserID)
	if err != nil {
		return nil, fmt.Errorf("update skill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	skill.UpdatedAt = now
	return &skill, nil
}

// ListSkills returns all skills for a user ordered by points descending.
func (s *SQLiteStore) ListSkills(ctx context.Context, userID string) ([]types.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+skillColumns+` FROM skills
		WHERE user_id = ?
		ORDER BY points DESC, name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var skills []types.Skill
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, *skill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}

	return skills, nil
}

// GetStats returns aggregate store statistics.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	stats := &types.StoreStats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&stats.TaskCount); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM goals").Scan(&stats.GoalCount); err != nil {
		return nil, fmt.Errorf("count goals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM skills").Scan(&stats.SkillCount); err != nil {
		return nil, fmt.Errorf("count skills: %w", err)
	}

	return stats, nil
}

// --- Scan helpers ---

func scanTask(scanner interface{ Scan(...any) error }) (*types.Task, error) {
	var task types.Task
	var status, createdAt, updatedAt string

	err := scanner.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = types.TaskStatus(status)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		task.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		task.UpdatedAt = t
	}

	return &task, nil
}

func scanGoal(scanner interface{ Scan(...any) error }) (*types.Goal, error) {
	var goal types.Goal
	var visible int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Title,
		&goal.Notes,
		&goal.CoverImageURL,
		&visible,
		&goal.Progress,
		&goal.CurrentLabel,
		&goal.CurrentValue,
		&goal.TargetLabel,
		&goal.TargetValue,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	goal.Visible = visible != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		goal.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		goal.UpdatedAt = t
	}

	return &goal, nil
}

func scanSkill(scanner interface{ Scan(...any) error }) (*types.Skill, error) {
	var skill types.Skill
	var createdAt, updatedAt string

	err := scanner.Scan(
		&skill.ID,
		&skill.UserID,
		&skill.Name,
		&skill.Progress,
		&skill.Points,
		&skill.Level,
		&skill.Icon,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		skill.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		skill.UpdatedAt = t
	}

	return &skill, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
