package research

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research/tools"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

// Collector gathers evidence for one task at a time: it derives search
// queries, drives the evidence source, scores the results, and appends the
// findings that pass both quality gates.
type Collector struct {
	Generator TextGenerator
	Searcher  Searcher
	Config    Config
	Logger    *slog.Logger
}

func NewCollector(gen TextGenerator, searcher Searcher, cfg Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Collector{Generator: gen, Searcher: searcher, Config: cfg, Logger: logger}
}

// Collect runs the evidence pipeline for task. Search failures are recorded
// as recoverable retrieval errors and whatever results were gathered before
// the failure are still processed; the task's topic is marked covered either
// way so the planner never re-selects it forever.
func (c *Collector) Collect(ctx context.Context, task *state.ResearchTask, s *state.ResearchState) {
	c.Logger.Info("Collecting evidence", "task", task.Description, "task_id", task.ID)

	queries := c.generateQueries(ctx, task, s)

	var allResults []tools.SearchResult
	for _, query := range queries {
		if s.QueryUsed(query) {
			c.Logger.Info("Skipping duplicate query", "query", query)
			continue
		}

		resp, err := c.Searcher.Search(ctx, query, c.Config.MaxResultsPerQuery, c.Config.SearchDepth)
		if err != nil {
			c.Logger.Error("Search failed", "query", query, "error", err)
			s.RecordError("collector", state.ErrKindRetrieval, err.Error())
			break
		}

		allResults = append(allResults, resp.Results...)
		s.MarkQueryUsed(query)
		s.APICallsCount++
	}

	unique := tools.DeduplicateResults(allResults)

	admitted := 0
	for _, result := range unique {
		quality := tools.EvaluateSourceQuality(result.URL, result.Title, result.Content)
		relevance := tools.CalculateRelevance(task.Description, result.Content, result.Title)

		if !c.passesGates(quality, relevance) {
			continue
		}

		s.Findings = append(s.Findings, state.Finding{
			ID:             uuid.NewString(),
			TaskID:         task.ID,
			Content:        result.Content,
			SourceURL:      result.URL,
			SourceTitle:    result.Title,
			SourceQuality:  quality,
			RelevanceScore: relevance,
			Timestamp:      time.Now(),
		})
		admitted++
	}

	// Unconditional, even with zero findings.
	s.CoveredTopics = append(s.CoveredTopics, task.Topic)

	c.Logger.Info("Evidence collection completed",
		"task_id", task.ID,
		"raw_results", len(allResults),
		"unique_results", len(unique),
		"qualified_findings", admitted,
		"total_findings", len(s.Findings))
}

// passesGates applies the two admission thresholds. Both gates must pass
// independently; they are never averaged.
func (c *Collector) passesGates(quality, relevance float64) bool {
	return quality >= c.Config.MinSourceQuality && relevance >= c.Config.MinRelevance
}

// generateQueries derives 2-3 search queries for the task, falling back to
// the task description verbatim so at least one search is always attempted.
func (c *Collector) generateQueries(ctx context.Context, task *state.ResearchTask, s *state.ResearchState) []string {
	content, err := c.Generator.Generate(ctx, PromptQueries, map[string]string{
		"task_description": task.Description,
		"topic":            task.Topic,
		"original_query":   s.Query,
	})
	if err != nil {
		c.Logger.Warn("Query generation failed, using task description", "error", err)
		return []string{task.Description}
	}

	var queries []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
		if len(queries) == 3 {
			break
		}
	}

	if len(queries) == 0 {
		return []string{task.Description}
	}

	c.Logger.Info("Search queries generated", "count", len(queries), "queries", queries)
	return queries
}
