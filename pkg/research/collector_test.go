package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research/tools"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

func TestPassesGatesRequiresBoth(t *testing.T) {
	c := NewCollector(nil, nil, DefaultConfig(), nil)

	tests := []struct {
		name      string
		quality   float64
		relevance float64
		want      bool
	}{
		{"both at floor", 0.4, 0.3, true},
		{"both high", 0.9, 0.9, true},
		{"quality ok relevance low", 0.5, 0.2, false},
		{"relevance ok quality low", 0.3, 0.9, false},
		{"both low", 0.1, 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.passesGates(tt.quality, tt.relevance))
		})
	}
}

func TestCollectAdmitsQualifiedFindings(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptQueries: "ev battery chemistry trends\nev battery cost curve\n",
	}}
	searcher := &fakeSearcher{results: map[string][]tools.SearchResult{
		"ev battery chemistry trends": {relevantResult(task.Description, "https://a.example.com/1")},
		"ev battery cost curve":       {relevantResult(task.Description, "https://b.example.com/2")},
	}}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)

	c.Collect(context.Background(), task, s)

	require.Len(t, s.Findings, 2)
	assert.Equal(t, task.ID, s.Findings[0].TaskID)
	assert.NotEmpty(t, s.Findings[0].ID)
	assert.Equal(t, 2, s.APICallsCount)
	assert.True(t, s.QueryUsed("ev battery chemistry trends"))
	assert.True(t, s.QueryUsed("ev battery cost curve"))
	assert.Equal(t, []string{"market_trends"}, s.CoveredTopics)
	assert.Empty(t, s.Errors)
}

func TestCollectRejectsIrrelevantResults(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptQueries: "ev battery chemistry trends",
	}}
	searcher := &fakeSearcher{results: map[string][]tools.SearchResult{
		"ev battery chemistry trends": {{
			Title:   "Unrelated celebrity gossip roundup",
			URL:     "https://gossip.example.com/post",
			Content: "celebrity news unrelated to anything technical",
		}},
	}}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)

	c.Collect(context.Background(), task, s)

	assert.Empty(t, s.Findings)
	// Topic coverage does not depend on evidence admission.
	assert.Equal(t, []string{"market_trends"}, s.CoveredTopics)
}

func TestCollectSkipsDuplicateQueries(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptQueries: "already asked\nfresh query",
	}}
	searcher := &fakeSearcher{results: map[string][]tools.SearchResult{
		"fresh query": {relevantResult(task.Description, "https://a.example.com/1")},
	}}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)
	s.MarkQueryUsed("already asked")

	c.Collect(context.Background(), task, s)

	assert.Equal(t, []string{"fresh query"}, searcher.queries)
	assert.Equal(t, 1, s.APICallsCount)
	assert.Len(t, s.Findings, 1)
}

func TestCollectSearchFailureIsRecoverable(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptQueries: "failing query\nnever reached",
	}}
	searcher := &fakeSearcher{errs: map[string]error{
		"failing query": errors.New("search failed after 3 attempts"),
	}}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)

	c.Collect(context.Background(), task, s)

	assert.Empty(t, s.Findings)
	assert.Equal(t, 0, s.APICallsCount)
	// The loop stops at the first search failure.
	assert.Equal(t, []string{"failing query"}, searcher.queries)
	assert.False(t, s.QueryUsed("failing query"))

	require.Len(t, s.Errors, 1)
	assert.Equal(t, state.ErrKindRetrieval, s.Errors[0].Kind)
	assert.Equal(t, "collector", s.Errors[0].Component)
	assert.True(t, s.Errors[0].Recoverable)

	assert.Equal(t, []string{"market_trends"}, s.CoveredTopics)
}

func TestCollectDeduplicatesAcrossQueries(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptQueries: "query one\nquery two",
	}}
	shared := relevantResult(task.Description, "https://a.example.com/same")
	sharedSlash := relevantResult(task.Description, "https://a.example.com/same/")
	searcher := &fakeSearcher{results: map[string][]tools.SearchResult{
		"query one": {shared},
		"query two": {sharedSlash},
	}}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)

	c.Collect(context.Background(), task, s)

	require.Len(t, s.Findings, 1)
	assert.Equal(t, "https://a.example.com/same", s.Findings[0].SourceURL)
}

func TestGenerateQueriesFallsBackToTaskDescription(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{errs: map[PromptKind]error{
		PromptQueries: errors.New("model unavailable"),
	}}
	searcher := &fakeSearcher{}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)

	c.Collect(context.Background(), task, s)

	assert.Equal(t, []string{task.Description}, searcher.queries)
	// Query generation failure is not recorded as an error entry.
	assert.Empty(t, s.Errors)
}

func TestGenerateQueriesCapsAtThreeAndSkipsNoise(t *testing.T) {
	task := state.NewTask("electric vehicle battery trends", "market_trends", 5)
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptQueries: "# search queries\n\nquery one\n  query two  \nquery three\nquery four",
	}}
	searcher := &fakeSearcher{}
	c := NewCollector(gen, searcher, DefaultConfig(), nil)
	s := state.New("ev market", 5)

	c.Collect(context.Background(), task, s)

	assert.Equal(t, []string{"query one", "query two", "query three"}, searcher.queries)
}
