package research

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

// routing decisions made after each analysis phase.
const (
	decisionContinue = "continue"
	decisionFinalize = "finalize"
)

// Engine sequences the planning, collection, and synthesis phases into
// iterations and applies the termination policy. One engine run owns one
// state record; phases execute strictly sequentially.
type Engine struct {
	Config      Config
	Planner     *Planner
	Collector   *Collector
	Synthesizer *Synthesizer
	Logger      *slog.Logger

	// OnStateUpdate, when set, receives a snapshot of the state after each
	// phase boundary. Used by the server to persist progress.
	OnStateUpdate func(s state.ResearchState)
}

// NewEngine wires the phase components around the two service boundaries.
func NewEngine(cfg Config, gen TextGenerator, searcher Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Engine{
		Config:      cfg,
		Planner:     NewPlanner(gen, logger),
		Collector:   NewCollector(gen, searcher, cfg, logger),
		Synthesizer: NewSynthesizer(gen, cfg, logger),
		Logger:      logger,
	}
}

// Run executes the full research loop for query and returns the final
// report. The only error it can return is an invalid configuration; every
// service failure inside the loop degrades to a fallback and the loop always
// reaches a report within MaxIterations.
func (e *Engine) Run(ctx context.Context, query string) (*state.FinalReport, error) {
	if e.Config.MaxIterations < 1 {
		return nil, &OrchestrationError{Reason: fmt.Sprintf("max iterations must be >= 1, got %d", e.Config.MaxIterations)}
	}
	if strings.TrimSpace(query) == "" {
		return nil, &OrchestrationError{Reason: "query must not be empty"}
	}

	s := state.New(query, e.Config.MaxIterations)
	e.Logger.Info("Research started", "query", query, "max_iterations", s.MaxIterations)
	e.notify(s)

	for {
		// Cancellation is honored at the top of each iteration; partial
		// results are kept and finalized, same as hitting the cap.
		if ctx.Err() != nil {
			e.Logger.Warn("Run cancelled, finalizing with accumulated state", "error", ctx.Err())
			break
		}

		e.planPhase(ctx, s)
		e.notify(s)

		if s.CurrentTask != nil {
			task := s.CurrentTask
			e.Collector.Collect(ctx, task, s)
			e.Planner.MarkCompleted(s, task.ID)
			s.CurrentTask = nil
		}
		e.notify(s)

		e.Synthesizer.Analyze(ctx, s)
		e.notify(s)

		if e.decideNextAction(s) == decisionFinalize {
			break
		}
	}

	report := e.finalize(s)
	e.notify(s)

	e.Logger.Info("Research completed",
		"iterations", s.IterationCount,
		"findings", len(s.Findings),
		"insights", len(s.Insights),
		"recommendations", len(s.Recommendations))

	return report, nil
}

// planPhase ensures a backlog exists, selects the next task, and advances
// the iteration counter exactly once per loop pass.
func (e *Engine) planPhase(ctx context.Context, s *state.ResearchState) {
	e.Logger.Info("Plan phase", "iteration", s.IterationCount)

	if s.IterationCount == 0 {
		e.Planner.Plan(ctx, s)
	}

	if next := e.Planner.NextTask(s); next != nil {
		e.Planner.MarkInProgress(s, next.ID)
		s.CurrentTask = next
	} else {
		// Backlog exhausted: force the routing decision toward finalize.
		s.CurrentTask = nil
		s.NeedsMoreResearch = false
	}

	s.IterationCount++
}

// decideNextAction applies the routing policy in its fixed order.
func (e *Engine) decideNextAction(s *state.ResearchState) string {
	if s.IterationCount >= s.MaxIterations {
		e.Logger.Info("Max iterations reached", "iterations", s.IterationCount)
		return decisionFinalize
	}

	metrics := state.CalculateQualityMetrics(s)
	s.QualityMetrics = metrics

	e.Logger.Info("Quality check",
		"coverage", metrics.CoverageScore,
		"source_quality", metrics.SourceQualityScore,
		"insight_depth", metrics.InsightDepthScore)

	if metrics.Sufficient(e.Config.Thresholds) {
		e.Logger.Info("Quality sufficient, finalizing")
		return decisionFinalize
	}

	if s.NeedsMoreResearch {
		e.Logger.Info("More research requested")
		return decisionContinue
	}

	if s.HasCriticalError {
		e.Logger.Warn("Critical error detected, finalizing")
		return decisionFinalize
	}

	if len(s.Findings) > 0 {
		e.Logger.Info("Continuing to improve quality")
		return decisionContinue
	}

	e.Logger.Info("No findings, finalizing")
	return decisionFinalize
}

// finalize assembles the immutable report and closes out the state record.
func (e *Engine) finalize(s *state.ResearchState) *state.FinalReport {
	e.Logger.Info("Finalizing report")

	s.QualityMetrics = state.CalculateQualityMetrics(s)
	s.Status = state.StatusCompleted
	s.CompletedAt = time.Now()

	report := &state.FinalReport{
		Query:           s.Query,
		Summary:         buildSummary(s),
		Insights:        append([]state.Insight{}, s.Insights...),
		Recommendations: append([]state.Recommendation{}, s.Recommendations...),
		Sources:         extractSources(s),
		QualityMetrics:  s.QualityMetrics,
		Metadata: state.ReportMetadata{
			Iterations:    s.IterationCount,
			TotalFindings: len(s.Findings),
			APICalls:      s.APICallsCount,
			StartedAt:     s.StartedAt,
			CompletedAt:   s.CompletedAt,
		},
	}

	return report
}

// buildSummary assembles the executive summary deterministically so that
// finalize can never fail on a service call.
func buildSummary(s *state.ResearchState) string {
	parts := []string{
		fmt.Sprintf("Research on: %s", s.Query),
		fmt.Sprintf("\nCompleted %d research iterations.", s.IterationCount),
		fmt.Sprintf("Analyzed %d sources and generated %d strategic insights.", len(s.Findings), len(s.Insights)),
	}

	if len(s.Insights) > 0 {
		parts = append(parts, "\n\nKey Themes:")
		for i, insight := range s.Insights {
			if i == 3 {
				break
			}
			parts = append(parts, fmt.Sprintf("%d. [%s] %s", i+1, insight.Category, insight.Description))
		}
	}

	return strings.Join(parts, "\n")
}

// extractSources returns the unique sources referenced by the findings,
// sorted by quality descending.
func extractSources(s *state.ResearchState) []state.Source {
	seen := make(map[string]bool)
	sources := make([]state.Source, 0, len(s.Findings))

	for _, f := range s.Findings {
		if f.SourceURL == "" || seen[f.SourceURL] {
			continue
		}
		seen[f.SourceURL] = true
		sources = append(sources, state.Source{
			Title:        f.SourceTitle,
			URL:          f.SourceURL,
			QualityScore: f.SourceQuality,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].QualityScore > sources[j].QualityScore
	})

	return sources
}

func (e *Engine) notify(s *state.ResearchState) {
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(*s)
	}
}
