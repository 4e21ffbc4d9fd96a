package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSourceQuality(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		title   string
		content string
		want    float64
	}{
		{"Base score only", "https://random-blog.io/post", "short", "", 0.5},
		{"Trusted domain bonus", "https://www.reuters.com/article", "short", "", 0.7},
		{"Gov domain bonus", "https://www.census.gov/data", "short", "", 0.7},
		{"Long title bonus", "https://random-blog.io/post", "A reasonably descriptive headline", "", 0.6},
		{"Content length bonus capped", "https://random-blog.io/post", "short", strings.Repeat("x", 4000), 0.7},
		{"All bonuses clamp to 1.0 ceiling", "https://www.bloomberg.com/news", "A reasonably descriptive headline", strings.Repeat("x", 4000), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateSourceQuality(tt.url, tt.title, tt.content)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestEvaluateSourceQualityPartialContentBonus(t *testing.T) {
	// 200 chars of content adds 0.1, half the 0.2 content cap.
	got := EvaluateSourceQuality("https://random-blog.io/post", "short", strings.Repeat("x", 200))
	assert.InDelta(t, 0.6, got, 0.001)
}

func TestCalculateRelevance(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		title   string
		want    float64
	}{
		{"All terms present", "electric vehicles", "electric vehicles are growing", "", 1.0},
		{"Half terms present", "electric vehicles market growth", "the market expanded and growth continued", "", 0.5},
		{"Term in title counts", "battery technology", "unrelated content", "battery technology review", 1.0},
		{"No terms present", "solar panels", "wind turbines only", "offshore", 0.0},
		{"Empty query", "", "anything", "anything", 0.0},
		{"Case insensitive", "Electric VEHICLES", "ELECTRIC vehicles everywhere", "", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRelevance(tt.query, tt.content, tt.title)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestDeduplicateResults(t *testing.T) {
	results := []SearchResult{
		{Title: "first", URL: "https://example.com/a"},
		{Title: "second", URL: "https://EXAMPLE.com/a/"},
		{Title: "third", URL: "https://example.com/b"},
		{Title: "fourth", URL: "https://example.com/a"},
	}

	unique := DeduplicateResults(results)

	assert.Len(t, unique, 2)
	assert.Equal(t, "first", unique[0].Title)
	assert.Equal(t, "third", unique[1].Title)
}

func TestDeduplicateResultsIdempotent(t *testing.T) {
	results := []SearchResult{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/a/"},
		{Title: "c", URL: "https://example.com/c"},
	}

	once := DeduplicateResults(results)
	twice := DeduplicateResults(once)

	assert.Equal(t, once, twice)
}

func TestDeduplicateResultsEmpty(t *testing.T) {
	assert.Empty(t, DeduplicateResults(nil))
	assert.Empty(t, DeduplicateResults([]SearchResult{}))
}
