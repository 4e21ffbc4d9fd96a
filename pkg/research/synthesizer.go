package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

// Synthesizer turns accumulated findings into insights and recommendations
// and decides whether another research iteration is worthwhile.
type Synthesizer struct {
	Generator TextGenerator
	Config    Config
	Logger    *slog.Logger
}

func NewSynthesizer(gen TextGenerator, cfg Config, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Synthesizer{Generator: gen, Config: cfg, Logger: logger}
}

// Analyze replaces the insight and recommendation snapshots from the current
// evidence and sets NeedsMoreResearch. With no evidence it only requests more
// research. Generation failures degrade to empty lists, never errors.
func (a *Synthesizer) Analyze(ctx context.Context, s *state.ResearchState) {
	if len(s.Findings) == 0 {
		a.Logger.Warn("No findings to analyze")
		s.NeedsMoreResearch = true
		return
	}

	a.Logger.Info("Analyzing findings", "findings_count", len(s.Findings), "iteration", s.IterationCount)

	insights := a.generateInsights(ctx, s)
	// Replace rather than append so insights never duplicate across iterations.
	s.Insights = insights

	recommendations := a.generateRecommendations(ctx, insights, s)
	s.Recommendations = recommendations

	s.NeedsMoreResearch = a.needsMoreResearch(s)

	a.Logger.Info("Analysis completed",
		"insights_count", len(insights),
		"recommendations_count", len(recommendations),
		"needs_more_research", s.NeedsMoreResearch)
}

type parsedInsight struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Priority    int     `json:"priority"`
}

func (a *Synthesizer) generateInsights(ctx context.Context, s *state.ResearchState) []state.Insight {
	content, err := a.Generator.Generate(ctx, PromptInsights, map[string]string{
		"query":    s.Query,
		"findings": findingsSummary(s.Findings),
	})
	if err != nil {
		a.Logger.Warn("Insight generation failed", "error", err)
		s.RecordError("synthesizer", state.ErrKindGeneration, err.Error())
		return []state.Insight{}
	}

	raw, err := extractJSONArray(content)
	if err != nil {
		a.Logger.Warn("Insight parsing failed", "error", err)
		s.RecordError("synthesizer", state.ErrKindValidation, err.Error())
		return []state.Insight{}
	}

	var parsed []parsedInsight
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		a.Logger.Warn("Insight parsing failed", "error", err)
		s.RecordError("synthesizer", state.ErrKindValidation, err.Error())
		return []state.Insight{}
	}

	// Supporting references are the earliest findings, not the most relevant
	// ones. Known approximation carried over from the reference design.
	supporting := make([]string, 0, 3)
	for _, f := range s.Findings {
		supporting = append(supporting, f.ID)
		if len(supporting) == 3 {
			break
		}
	}

	insights := make([]state.Insight, 0, len(parsed))
	for _, p := range parsed {
		category := p.Category
		if category == "" {
			category = "general"
		}
		confidence := p.Confidence
		if confidence <= 0 {
			confidence = 0.7
		}
		priority := p.Priority
		if priority < 1 || priority > 5 {
			priority = 3
		}

		insights = append(insights, state.Insight{
			ID:                 uuid.NewString(),
			Category:           category,
			Description:        p.Description,
			SupportingFindings: supporting,
			Confidence:         confidence,
			Priority:           priority,
		})
	}

	a.Logger.Info("Insights generated", "count", len(insights))
	return insights
}

type parsedRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
	Impact      string `json:"impact"`
	Effort      string `json:"effort"`
}

func (a *Synthesizer) generateRecommendations(ctx context.Context, insights []state.Insight, s *state.ResearchState) []state.Recommendation {
	if len(insights) == 0 {
		a.Logger.Info("No insights to base recommendations on")
		return []state.Recommendation{}
	}

	var insightLines []string
	for _, i := range insights {
		insightLines = append(insightLines,
			fmt.Sprintf("- [%s] %s (Priority: %d)", i.Category, i.Description, i.Priority))
	}

	content, err := a.Generator.Generate(ctx, PromptRecommendations, map[string]string{
		"query":    s.Query,
		"insights": strings.Join(insightLines, "\n"),
	})
	if err != nil {
		a.Logger.Warn("Recommendation generation failed", "error", err)
		s.RecordError("synthesizer", state.ErrKindGeneration, err.Error())
		return []state.Recommendation{}
	}

	raw, err := extractJSONArray(content)
	if err != nil {
		a.Logger.Warn("Recommendation parsing failed", "error", err)
		s.RecordError("synthesizer", state.ErrKindValidation, err.Error())
		return []state.Recommendation{}
	}

	var parsed []parsedRecommendation
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		a.Logger.Warn("Recommendation parsing failed", "error", err)
		s.RecordError("synthesizer", state.ErrKindValidation, err.Error())
		return []state.Recommendation{}
	}

	supporting := make([]string, 0, 2)
	for _, i := range insights {
		supporting = append(supporting, i.ID)
		if len(supporting) == 2 {
			break
		}
	}

	recommendations := make([]state.Recommendation, 0, len(parsed))
	for _, p := range parsed {
		impact := p.Impact
		if impact == "" {
			impact = "medium"
		}
		effort := p.Effort
		if effort == "" {
			effort = "medium"
		}

		recommendations = append(recommendations, state.Recommendation{
			ID:                 uuid.NewString(),
			Title:              p.Title,
			Description:        p.Description,
			Rationale:          p.Rationale,
			SupportingInsights: supporting,
			Impact:             impact,
			Effort:             effort,
		})
	}

	a.Logger.Info("Recommendations generated", "count", len(recommendations))
	return recommendations
}

// needsMoreResearch is the ordered completeness check. The short-circuit
// order matters: quality floors, then high-confidence insight count, then
// the near-cap convergence forcing, then default to more research.
func (a *Synthesizer) needsMoreResearch(s *state.ResearchState) bool {
	metrics := state.CalculateQualityMetrics(s)

	a.Logger.Info("Evaluating completeness",
		"coverage", metrics.CoverageScore,
		"source_quality", metrics.SourceQualityScore,
		"insight_depth", metrics.InsightDepthScore,
		"iteration", s.IterationCount)

	if metrics.Sufficient(a.Config.Thresholds) {
		a.Logger.Info("Quality sufficient, no more research needed")
		return false
	}

	highConfidence := 0
	for _, i := range s.Insights {
		if i.Confidence >= 0.7 {
			highConfidence++
		}
	}
	if highConfidence >= 5 {
		a.Logger.Info("Sufficient high-confidence insights", "count", highConfidence)
		return false
	}

	// Force convergence one step before the hard cap.
	if s.IterationCount >= s.MaxIterations-1 {
		a.Logger.Info("Near max iterations, finalizing")
		return false
	}

	a.Logger.Info("Requesting more research")
	return true
}

// findingsSummary renders a bounded summary of findings for the LLM: top 20
// by input order, content truncated to 200 runes each.
func findingsSummary(findings []state.Finding) string {
	var parts []string

	limit := len(findings)
	if limit > 20 {
		limit = 20
	}

	for i := 0; i < limit; i++ {
		f := findings[i]

		content := f.Content
		runes := []rune(content)
		if len(runes) > 200 {
			content = string(runes[:200])
		}

		title := f.SourceTitle
		if title == "" {
			title = "Unknown"
		}

		parts = append(parts, fmt.Sprintf("%d. [quality %.1f] %s\n   %s...", i+1, f.SourceQuality, title, content))
	}

	return strings.Join(parts, "\n\n")
}
