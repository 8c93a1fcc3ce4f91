// Package goals manages the user's active goal: reading it and folding
// partial updates into it, deriving missing metric fields from freeform
// text when the caller did not supply them explicitly.
package goals

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/strideworks/stride/internal/metric"
	"github.com/strideworks/stride/internal/store"
	"github.com/strideworks/stride/internal/types"
)

// DefaultTitle names a goal created without one.
const DefaultTitle = "Untitled Goal"

// Service provides goal reads and upserts over the store.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Active returns the user's active goal, or store.ErrNotFound when the
// user has none.
func (s *Service) Active(ctx context.Context, userID string) (*types.Goal, error) {
	return s.store.ActiveGoal(ctx, userID)
}

// Upsert folds the input into the user's active goal, creating one when
// none exists. Empty input fields leave existing values untouched on
// update. A target or current value absent from the input is derived by
// scanning the input's freeform text for a metric token.
func (s *Service) Upsert(ctx context.Context, userID string, input types.GoalInput) (*types.Goal, error) {
	patch := buildPatch(input)

	existing, err := s.store.ActiveGoal(ctx, userID)
	switch {
	case err == nil:
		return s.store.UpdateGoal(ctx, existing.ID, patch)
	case errors.Is(err, store.ErrNotFound):
		return s.store.InsertGoal(ctx, newGoal(userID, patch))
	default:
		return nil, err
	}
}

// SetCoverImage records the goal's cover image URL, creating the goal if
// the user has none yet.
func (s *Service) SetCoverImage(ctx context.Context, userID, url string) (*types.Goal, error) {
	return s.Upsert(ctx, userID, types.GoalInput{CoverImageURL: url})
}

// buildPatch normalizes the input into a partial update. Only supplied
// fields appear in the patch; metric values missing from the input are
// derived from the freeform text sources when possible, picking up a
// default label alongside the derived value.
func buildPatch(input types.GoalInput) types.GoalUpdate {
	var patch types.GoalUpdate

	setIfPresent(&patch.Title, input.Title)
	setIfPresent(&patch.Notes, input.Notes)
	setIfPresent(&patch.CoverImageURL, input.CoverImageURL)
	setIfPresent(&patch.TargetLabel, input.TargetLabel)
	setIfPresent(&patch.TargetValue, input.TargetValue)
	setIfPresent(&patch.CurrentLabel, input.CurrentLabel)
	setIfPresent(&patch.CurrentValue, input.CurrentValue)

	if input.Progress != nil && !math.IsNaN(*input.Progress) {
		clamped := math.Min(100, math.Max(0, math.Round(*input.Progress)))
		patch.Progress = &clamped
	}

	if patch.TargetValue == nil {
		if token, ok := firstMetric(input.TargetValue, input.Notes, input.Title); ok {
			patch.TargetValue = &token
			if patch.TargetLabel == nil {
				label := "Target"
				patch.TargetLabel = &label
			}
		}
	}
	if patch.CurrentValue == nil {
		if token, ok := firstMetric(input.CurrentValue, input.Notes); ok {
			patch.CurrentValue = &token
			if patch.CurrentLabel == nil {
				label := "Current"
				patch.CurrentLabel = &label
			}
		}
	}

	return patch
}

// newGoal materializes a full goal row from a patch, filling defaults
// for everything the patch leaves unset.
func newGoal(userID string, patch types.GoalUpdate) types.Goal {
	goal := types.Goal{
		UserID:       userID,
		Visible:      true,
		Title:        DefaultTitle,
		TargetLabel:  "Target",
		CurrentLabel: "Current",
	}
	if patch.Title != nil {
		goal.Title = *patch.Title
	}
	if patch.Notes != nil {
		goal.Notes = *patch.Notes
	}
	if patch.CoverImageURL != nil {
		goal.CoverImageURL = *patch.CoverImageURL
	}
	if patch.TargetLabel != nil {
		goal.TargetLabel = *patch.TargetLabel
	}
	if patch.TargetValue != nil {
		goal.TargetValue = *patch.TargetValue
	}
	if patch.CurrentLabel != nil {
		goal.CurrentLabel = *patch.CurrentLabel
	}
	if patch.CurrentValue != nil {
		goal.CurrentValue = *patch.CurrentValue
	}
	if patch.Progress != nil {
		goal.Progress = *patch.Progress
	}
	return goal
}

func setIfPresent(dst **string, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}
	*dst = &trimmed
}

// firstMetric scans the sources in order and returns the first metric
// token found in any of them.
func firstMetric(sources ...string) (string, bool) {
	for _, source := range sources {
		if token, ok := metric.ExtractAny(source); ok {
			return token, true
		}
	}
	return "", false
}
