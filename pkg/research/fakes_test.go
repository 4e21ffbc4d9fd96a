package research

import (
	"context"
	"fmt"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research/tools"
)

// fakeGenerator returns canned responses per prompt kind and records calls.
type fakeGenerator struct {
	responses map[PromptKind]string
	errs      map[PromptKind]error
	calls     []PromptKind
}

func (g *fakeGenerator) Generate(_ context.Context, kind PromptKind, _ map[string]string) (string, error) {
	g.calls = append(g.calls, kind)
	if err, ok := g.errs[kind]; ok {
		return "", err
	}
	if resp, ok := g.responses[kind]; ok {
		return resp, nil
	}
	return "", fmt.Errorf("no canned response for %s", kind)
}

// fakeSearcher serves canned results per query and records every query.
type fakeSearcher struct {
	results map[string][]tools.SearchResult
	errs    map[string]error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int, _ string) (*tools.SearchResponse, error) {
	s.queries = append(s.queries, query)
	if err, ok := s.errs[query]; ok {
		return nil, err
	}
	return &tools.SearchResponse{Query: query, Results: s.results[query]}, nil
}

// relevantResult builds a search result whose content echoes the query terms
// so it clears both admission gates against any task description.
func relevantResult(task, url string) tools.SearchResult {
	return tools.SearchResult{
		Title:   "A detailed analysis of " + task,
		URL:     url,
		Content: task + " " + task,
		Score:   0.9,
	}
}
