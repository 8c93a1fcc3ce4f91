package estimator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/strideworks/stride/internal/types"
)

// Compile-time interface check
var _ Estimator = (*OpenAI)(nil)

// ChatService defines the interface for making chat completion API calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements impact estimation using OpenAI's chat completion API.
type OpenAI struct {
	chat        ChatService
	model       openai.ChatModel
	temperature float64
	timeout     time.Duration
}

// NewOpenAI creates a new OpenAI-backed estimator. A zero timeout leaves
// call deadlines to the caller's context.
func NewOpenAI(apiKey, model string, temperature float64, timeout time.Duration) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		chat:        client.Chat.Completions,
		model:       openai.ChatModel(model),
		temperature: temperature,
		timeout:     timeout,
	}
}

// Mode reports the estimation mode for health reporting.
func (o *OpenAI) Mode() string { return "model" }

const taskImpactSystem = `You output JSON only. Example: {"impact_percent":5.5,"current_value_delta":200,"reasoning":"very helpful"}. Impact must be between 0.1 and 10, never zero.`

const skillImpactSystem = `Output JSON only. Example: {"skill_name":"UX Research","progress_delta":5.5,"icon":"🧠"}. progress_delta must be between 0.5 and 20.`

// EstimateTaskImpact asks the model how much the completed task advanced
// the goal. Any backend failure or unparseable response degrades to the
// fixed fallback; the error never reaches the caller.
func (o *OpenAI) EstimateTaskImpact(ctx context.Context, goal types.Goal, taskTitle string) types.ImpactEstimate {
	prompt := fmt.Sprintf(`You estimate how much progress a task contributes toward a user's big goal.
Return a JSON object with: impact_percent (0.1-10), current_value_delta (numeric, can be 0), reasoning.
Goal title: %s
Goal target value: %s
Goal current value: %s
Current progress: %g%%
Completed task: %s`,
		orUnknown(goal.Title),
		orUnknown(goal.TargetValue),
		orUnknown(goal.CurrentValue),
		goal.Progress,
		taskTitle)

	content, err := o.complete(ctx, taskImpactSystem, prompt)
	if err != nil {
		slog.Warn("task impact estimation fell back", "error", err)
		return fallbackImpact()
	}

	return parseImpact(content)
}

// EstimateSkillImpact asks the model which single skill the completed task
// developed. A backend failure or unparseable payload degrades to the
// default skill; a parseable payload with an empty skill name returns nil
// so the caller skips skill tracking for this completion.
func (o *OpenAI) EstimateSkillImpact(ctx context.Context, goal types.Goal, taskTitle string) *types.SkillImpact {
	prompt := fmt.Sprintf(`You determine which single skill benefits the most from the completed task.
Return JSON with: skill_name (short noun phrase), progress_delta (0.5-20), and icon (emoji or short text).
Goal: %s
Completed task: %s
Existing skills should remain consistent if the same skill already exists.`,
		orUnknown(goal.Title),
		taskTitle)

	content, err := o.complete(ctx, skillImpactSystem, prompt)
	if err != nil {
		slog.Warn("skill impact estimation fell back", "error", err)
		return defaultSkill()
	}

	return parseSkillImpact(content)
}

// complete issues one chat completion call, retrying transient failures
// once with exponential backoff before giving up.
func (o *OpenAI) complete(ctx context.Context, system, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var content string

	backoff := retry.WithMaxRetries(1, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
			Model:       openai.F(o.model),
			Temperature: openai.F(o.temperature),
			Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(prompt),
			}),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return retry.RetryableError(fmt.Errorf("empty completion"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	return sanitizeJSON(content), nil
}

// parseImpact validates the model payload and clamps it into bounds.
// Shape mismatches map to the fallback; no unvalidated value escapes.
func parseImpact(content string) types.ImpactEstimate {
	if !gjson.Valid(content) {
		return fallbackImpact()
	}

	percent := gjson.Get(content, "impact_percent")
	if !percent.Exists() {
		percent = gjson.Get(content, "percent")
	}
	percentValue := float64(FallbackPercent)
	if percent.Exists() {
		percentValue = percent.Float()
	}

	delta := gjson.Get(content, "current_value_delta").Float()

	estimate := types.ImpactEstimate{
		Percent:    clamp(percentValue, MinImpactPercent, MaxImpactPercent),
		ValueDelta: nonNegative(delta),
	}
	if reasoning := gjson.Get(content, "reasoning"); reasoning.Type == gjson.String {
		estimate.Reasoning = reasoning.String()
	}

	return estimate
}

// parseSkillImpact validates the model payload. An unparseable payload
// yields the default skill; a parseable payload without a usable name
// yields nil.
func parseSkillImpact(content string) *types.SkillImpact {
	if !gjson.Valid(content) {
		return defaultSkill()
	}

	name := gjson.Get(content, "skill_name")
	if !name.Exists() {
		name = gjson.Get(content, "name")
	}
	trimmed := strings.TrimSpace(name.String())
	if trimmed == "" {
		return nil
	}

	delta := gjson.Get(content, "progress_delta")
	if !delta.Exists() {
		delta = gjson.Get(content, "delta")
	}
	deltaValue := float64(DefaultSkillDelta)
	if delta.Exists() {
		deltaValue = delta.Float()
	}

	icon := DefaultSkillIcon
	if i := gjson.Get(content, "icon"); i.Type == gjson.String && i.String() != "" {
		icon = truncateIcon(i.String())
	}

	return &types.SkillImpact{
		Name:  trimmed,
		Delta: clamp(deltaValue, MinSkillDelta, MaxSkillDelta),
		Icon:  icon,
	}
}

// sanitizeJSON strips markdown code fences some models wrap around JSON.
func sanitizeJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
