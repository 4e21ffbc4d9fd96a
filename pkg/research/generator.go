package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// prompt templates per kind. System text sets the role; user text is built
// from the structured inputs each component passes in.
var systemPrompts = map[PromptKind]string{
	PromptPlan: `You are a strategic research planner. Given a research query,
decompose it into 3-5 specific, actionable research subtasks.

Consider:
- Market trends and dynamics
- Competitive landscape
- Key players and stakeholders
- Recent developments and news
- Strategic opportunities and risks

For each task provide a description, a topic/focus area, and a priority
(1-5, where 5 is highest). Return only a JSON array of tasks:
[{"description": "...", "topic": "...", "priority": 5}, ...]`,

	PromptQueries: `You are an expert at creating search queries.
Given a research task, generate 2-3 specific, effective search queries
that will find the most relevant and high-quality information.

Make queries specific and targeted. Return only the queries, one per line.`,

	PromptInsights: `You are a strategic business analyst. Analyze research findings
and identify key insights across these categories:
- Market trends
- Competitive dynamics
- Strategic opportunities
- Potential risks

Generate 3-7 strategic insights. Return only a JSON array:
[{"category": "market_trend|competitor_analysis|opportunity|risk",
  "description": "Clear insight statement",
  "confidence": 0.0-1.0,
  "priority": 1-5}, ...]`,

	PromptRecommendations: `You are a strategic advisor. Based on research insights,
generate 3-5 actionable recommendations for decision makers.

Return only a JSON array:
[{"title": "Action-oriented title",
  "description": "What to do",
  "rationale": "Why this matters",
  "impact": "high|medium|low",
  "effort": "high|medium|low"}, ...]`,
}

var userPrompts = map[PromptKind]func(inputs map[string]string) string{
	PromptPlan: func(in map[string]string) string {
		return fmt.Sprintf("Research Query: %s\n\nCreate a research plan with specific subtasks.", in["query"])
	},
	PromptQueries: func(in map[string]string) string {
		return fmt.Sprintf("Research Task: %s\nTopic: %s\nOriginal Query: %s\n\nGenerate 2-3 search queries, one per line.",
			in["task_description"], in["topic"], in["original_query"])
	},
	PromptInsights: func(in map[string]string) string {
		return fmt.Sprintf("Research Query: %s\n\nFindings Summary:\n%s", in["query"], in["findings"])
	},
	PromptRecommendations: func(in map[string]string) string {
		return fmt.Sprintf("Research Query: %s\n\nStrategic Insights:\n%s", in["query"], in["insights"])
	},
}

// LLMGenerator implements TextGenerator on top of a langchaingo model.
type LLMGenerator struct {
	LLM        llms.Model
	MaxRetries int
	Logger     *slog.Logger
}

// NewLLMGenerator wraps a langchaingo model with retry behavior.
func NewLLMGenerator(model llms.Model) *LLMGenerator {
	return &LLMGenerator{
		LLM:        model,
		MaxRetries: 3,
		Logger:     slog.Default(),
	}
}

// Generate renders the prompt for kind and calls the model, retrying
// transient failures with linear backoff.
func (g *LLMGenerator) Generate(ctx context.Context, kind PromptKind, inputs map[string]string) (string, error) {
	system, ok := systemPrompts[kind]
	if !ok {
		return "", fmt.Errorf("unknown prompt kind: %s", kind)
	}
	user := userPrompts[kind](inputs)

	prompts := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	var lastErr error
	for i := 0; i < g.MaxRetries; i++ {
		if i > 0 {
			g.Logger.Warn("Retrying LLM generation", "kind", kind, "attempt", i+1, "last_error", lastErr)
			select {
			case <-time.After(time.Second * time.Duration(i)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := g.LLM.GenerateContent(ctx, prompts)
		if err != nil {
			lastErr = fmt.Errorf("llm generation failed: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		return resp.Choices[0].Content, nil
	}

	return "", fmt.Errorf("generation failed after %d retries: %w", g.MaxRetries, lastErr)
}
