// Package completion orchestrates the task-completion pipeline: mark the
// task done, estimate how much it advanced the active goal, fold the
// estimate into the goal's progress and metrics, and accumulate the skill
// it developed. Goal writes are hard failures; skill tracking is
// best-effort and surfaces only as warnings on the result.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/strideworks/stride/internal/estimator"
	"github.com/strideworks/stride/internal/metric"
	"github.com/strideworks/stride/internal/store"
	"github.com/strideworks/stride/internal/types"
)

// ErrTaskNotFound is returned when the task does not exist for the
// requesting user. Absent and not-owned tasks are indistinguishable to
// avoid leaking existence.
var ErrTaskNotFound = errors.New("task not found or not permitted")

// Service runs the completion pipeline against injected collaborators.
type Service struct {
	store     store.Store
	estimator estimator.Estimator
}

// NewService creates a completion Service.
func NewService(s store.Store, e estimator.Estimator) *Service {
	return &Service{store: s, estimator: e}
}

// Complete marks the task done and attributes its impact to the user's
// active goal and most relevant skill.
//
// A task that is already done returns immediately with no goal or skill
// side effects, so re-completing never double-counts progress. A user
// without an active goal gets the updated task alone; that is a valid
// terminal state, not an error.
func (s *Service) Complete(ctx context.Context, userID, taskID string) (*types.CompletionResult, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	if task.Status == types.TaskDone {
		return &types.CompletionResult{Task: task}, nil
	}

	updated, err := s.store.UpdateTaskStatus(ctx, userID, taskID, types.TaskDone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("mark task done: %w", err)
	}

	goal, err := s.store.ActiveGoal(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("active goal lookup failed", "error", err, "user_id", userID)
		}
		return &types.CompletionResult{Task: updated}, nil
	}

	title := strings.TrimSpace(updated.Title)
	if title == "" {
		title = fmt.Sprintf("Task #%s", updated.ID)
	}

	impact := s.estimator.EstimateTaskImpact(ctx, *goal, title)

	update := recomputeGoal(*goal, impact)
	updatedGoal, err := s.store.UpdateGoal(ctx, goal.ID, update)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}

	result := &types.CompletionResult{
		Task:   updated,
		Goal:   updatedGoal,
		Impact: &impact,
	}

	skillImpact := s.estimator.EstimateSkillImpact(ctx, *goal, title)
	if skillImpact == nil {
		return result, nil
	}

	skill, warning := s.upsertSkill(ctx, userID, *skillImpact)
	if warning != "" {
		slog.Warn("skill tracking skipped", "warning", warning, "user_id", userID)
		result.Warnings = append(result.Warnings, warning)
	}
	result.Skill = skill

	return result, nil
}

// recomputeGoal folds an impact estimate into the goal's numeric state.
//
// The current-value baseline resolves through stored value, then notes
// ("current" keyword), then title; target resolves the same way. When a
// target cap is known the impact percent is interpreted against it,
// otherwise the estimator's raw value delta applies. The notes field is
// rewritten to a terse metrics summary, replacing prior freeform content.
func recomputeGoal(goal types.Goal, impact types.ImpactEstimate) types.GoalUpdate {
	newProgress := math.Min(100, goal.Progress+impact.Percent)

	currentRaw, haveCurrent := resolveMetric(goal.CurrentValue, goal.Notes, "current", goal.Title)
	targetRaw, haveTarget := resolveMetric(goal.TargetValue, goal.Notes, "target", goal.Title)

	var currentParts, targetParts metric.Metric
	currentOK, targetOK := false, false
	if haveCurrent {
		currentParts, currentOK = metric.Parse(currentRaw)
	}
	if haveTarget {
		targetParts, targetOK = metric.Parse(targetRaw)
	}

	symbol := currentParts.Symbol
	if symbol == "" {
		symbol = targetParts.Symbol
	}
	if symbol == "" {
		symbol = metric.DetectSymbol(goal.Title, goal.Notes)
	}

	// With a known target cap the percent is interpreted against the
	// target; without one only the estimator's absolute delta moves the
	// current value.
	var contribution float64
	if targetOK {
		contribution = targetParts.Value * impact.Percent / 100
	} else {
		contribution = impact.ValueDelta
	}

	// No explicit baseline: derive one from the target and prior progress
	// when possible, else start from zero.
	var base float64
	switch {
	case currentOK:
		base = currentParts.Value
	case targetOK:
		base = targetParts.Value * goal.Progress / 100
	}

	newValue := base + contribution
	if targetOK {
		newValue = math.Min(newValue, targetParts.Value)
	}
	formatted := metric.Format(symbol, math.Max(0, newValue))

	update := types.GoalUpdate{
		Progress:     &newProgress,
		CurrentValue: &formatted,
	}
	if goal.TargetValue == "" && haveTarget {
		update.TargetValue = &targetRaw
	}

	prettyTarget := "—"
	switch {
	case goal.TargetValue != "":
		prettyTarget = goal.TargetValue
	case targetOK:
		prettyTarget = metric.Format(targetParts.Symbol, targetParts.Value)
	}

	notes := fmt.Sprintf("%s: %s, %s: %s",
		labelOr(goal.CurrentLabel, "Current"), formatted,
		labelOr(goal.TargetLabel, "Target"), prettyTarget)
	update.Notes = &notes

	return update
}

// resolveMetric walks the source chain for one metric: stored value, then
// keyword-scoped extraction from notes, then extraction from the title.
// Each step is attempted only when the prior yields nothing.
func resolveMetric(stored, notes, keyword, title string) (string, bool) {
	if strings.TrimSpace(stored) != "" {
		return stored, true
	}
	if token, ok := metric.ExtractKeyword(notes, keyword); ok {
		return token, true
	}
	if token, ok := metric.ExtractAny(title); ok {
		return token, true
	}
	return "", false
}

// upsertSkill accumulates a skill contribution, creating the skill on its
// first contribution. Store failures return a warning instead of an error;
// skill tracking never fails the completion.
func (s *Service) upsertSkill(ctx context.Context, userID string, impact types.SkillImpact) (*types.Skill, string) {
	points := int(math.Round(impact.Delta * 10))
	icon := impact.Icon
	if icon == "" {
		icon = estimator.DefaultSkillIcon
	}

	existing, err := s.store.FindSkill(ctx, userID, impact.Name)
	switch {
	case err == nil:
		existing.Progress = math.Min(100, existing.Progress+impact.Delta)
		existing.Points += points
		existing.Level = levelForPoints(existing.Points)
		if existing.Icon == "" {
			existing.Icon = icon
		}
		updated, err := s.store.UpdateSkill(ctx, *existing)
		if err != nil {
			return nil, fmt.Sprintf("update skill %q: %v", impact.Name, err)
		}
		return updated, ""

	case errors.Is(err, store.ErrNotFound):
		created, err := s.store.InsertSkill(ctx, types.Skill{
			UserID:   userID,
			Name:     impact.Name,
			Progress: impact.Delta,
			Points:   points,
			Level:    levelForPoints(points),
			Icon:     icon,
		})
		if err != nil {
			return nil, fmt.Sprintf("create skill %q: %v", impact.Name, err)
		}
		return created, ""

	default:
		return nil, fmt.Sprintf("look up skill %q: %v", impact.Name, err)
	}
}

// levelForPoints derives a level from accumulated points, never below 1.
func levelForPoints(points int) int {
	level := points/100 + 1
	if level < 1 {
		level = 1
	}
	return level
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}
