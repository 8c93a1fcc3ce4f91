// Package estimator produces bounded impact estimates for completed tasks:
// how much a task advanced the active goal, and which skill it developed.
// Estimates come from a language-model backend when one is configured and
// degrade to deterministic fallbacks otherwise. Estimation never fails:
// every error path maps to a conservative fallback value.
package estimator

import (
	"context"
	"math"
	"time"

	"github.com/strideworks/stride/internal/types"
)

// Bounds on estimated values. A completed task never reports zero goal
// impact and never more than MaxImpactPercent from a single completion.
const (
	MinImpactPercent = 0.1
	MaxImpactPercent = 10

	MinSkillDelta = 0.5
	MaxSkillDelta = 20

	maxIconRunes = 4
)

// Defaults used by the fallback paths.
const (
	FallbackPercent   = 1
	DefaultSkillName  = "General Skill"
	DefaultSkillDelta = 5
	DefaultSkillIcon  = "🌱"
)

// Estimator defines the interface contract for impact estimation.
// EstimateSkillImpact returns nil when skill tracking should be skipped for
// this completion (backend reachable but no usable skill name).
type Estimator interface {
	EstimateTaskImpact(ctx context.Context, goal types.Goal, taskTitle string) types.ImpactEstimate
	EstimateSkillImpact(ctx context.Context, goal types.Goal, taskTitle string) *types.SkillImpact
	Mode() string
}

// New returns the OpenAI-backed estimator when an API key is configured,
// and the deterministic Static estimator otherwise.
func New(apiKey, model string, temperature float64, timeout time.Duration) Estimator {
	if apiKey == "" {
		return &Static{}
	}
	return NewOpenAI(apiKey, model, temperature, timeout)
}

// Static is the no-backend estimator. It synthesizes the fixed fallback
// impact and the default skill without any network access.
type Static struct{}

// Compile-time interface check
var _ Estimator = (*Static)(nil)

// EstimateTaskImpact returns the conservative fixed impact.
func (s *Static) EstimateTaskImpact(ctx context.Context, goal types.Goal, taskTitle string) types.ImpactEstimate {
	return fallbackImpact()
}

// EstimateSkillImpact synthesizes the default skill so skill tracking still
// moves when no backend is configured.
func (s *Static) EstimateSkillImpact(ctx context.Context, goal types.Goal, taskTitle string) *types.SkillImpact {
	return defaultSkill()
}

// Mode reports the estimation mode for health reporting.
func (s *Static) Mode() string { return "fallback" }

func fallbackImpact() types.ImpactEstimate {
	return types.ImpactEstimate{Percent: FallbackPercent, ValueDelta: 0}
}

func defaultSkill() *types.SkillImpact {
	return &types.SkillImpact{
		Name:  DefaultSkillName,
		Delta: DefaultSkillDelta,
		Icon:  DefaultSkillIcon,
	}
}

// clamp bounds v into [min, max]; non-finite values collapse to min.
func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// nonNegative treats negative and non-finite values as 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// truncateIcon shortens an icon to the fixed rune budget.
func truncateIcon(icon string) string {
	runes := []rune(icon)
	if len(runes) > maxIconRunes {
		return string(runes[:maxIconRunes])
	}
	return icon
}
