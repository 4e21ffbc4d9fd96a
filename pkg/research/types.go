package research

import (
	"context"
	"fmt"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research/tools"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

// PromptKind selects which structured generation a component is asking for.
type PromptKind string

const (
	PromptPlan            PromptKind = "plan"
	PromptQueries         PromptKind = "queries"
	PromptInsights        PromptKind = "insights"
	PromptRecommendations PromptKind = "recommendations"
)

// TextGenerator is the capability boundary for all natural-language
// generation. Components depend only on this contract; failures and
// unparsable output trigger each component's deterministic fallback.
type TextGenerator interface {
	Generate(ctx context.Context, kind PromptKind, inputs map[string]string) (string, error)
}

// Searcher is the capability boundary for the evidence source.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, depth string) (*tools.SearchResponse, error)
}

// Config holds the tunables for one research run. Zero values are filled from
// defaults; MaxIterations < 1 is rejected before the loop starts.
type Config struct {
	MaxIterations      int
	MaxResultsPerQuery int
	SearchDepth        string
	MinSourceQuality   float64
	MinRelevance       float64
	Thresholds         state.QualityThresholds
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      5,
		MaxResultsPerQuery: 5,
		SearchDepth:        "advanced",
		MinSourceQuality:   0.4,
		MinRelevance:       0.3,
		Thresholds:         state.DefaultQualityThresholds(),
	}
}

func (c *Config) applyDefaults() {
	if c.MaxResultsPerQuery == 0 {
		c.MaxResultsPerQuery = 5
	}
	if c.SearchDepth == "" {
		c.SearchDepth = "advanced"
	}
	if c.MinSourceQuality == 0 {
		c.MinSourceQuality = 0.4
	}
	if c.MinRelevance == 0 {
		c.MinRelevance = 0.3
	}
	if c.Thresholds == (state.QualityThresholds{}) {
		c.Thresholds = state.DefaultQualityThresholds()
	}
}

// OrchestrationError reports an invalid caller-supplied configuration. It is
// the only non-recoverable failure: it is returned before the loop starts,
// never mid-run.
type OrchestrationError struct {
	Reason string
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("invalid orchestration config: %s", e.Reason)
}
