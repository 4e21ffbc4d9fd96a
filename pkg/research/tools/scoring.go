package tools

import "strings"

// Domains that get a credibility bonus when scoring sources.
var trustedDomains = []string{
	".gov", ".edu", "reuters.com", "bloomberg.com",
	"wsj.com", "forbes.com", "techcrunch.com",
	"harvard.edu", "stanford.edu", "mit.edu",
}

// EvaluateSourceQuality scores the credibility of a source in [0, 1].
// Additive heuristic: 0.5 base, +0.2 trusted domain, up to +0.2 for content
// length, +0.1 for a descriptive title.
func EvaluateSourceQuality(url, title, content string) float64 {
	score := 0.5

	lowerURL := strings.ToLower(url)
	for _, domain := range trustedDomains {
		if strings.Contains(lowerURL, domain) {
			score += 0.2
			break
		}
	}

	if content != "" {
		contentBonus := float64(len(content)) / 2000.0
		if contentBonus > 0.2 {
			contentBonus = 0.2
		}
		score += contentBonus
	}

	if len(title) > 20 {
		score += 0.1
	}

	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

// CalculateRelevance scores how relevant content is to a query in [0, 1],
// as the fraction of query terms found in the content plus title.
func CalculateRelevance(query, content, title string) float64 {
	terms := make(map[string]bool)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		terms[term] = true
	}
	if len(terms) == 0 {
		return 0
	}

	haystack := strings.ToLower(content + " " + title)

	matches := 0
	for term := range terms {
		if strings.Contains(haystack, term) {
			matches++
		}
	}

	relevance := float64(matches) / float64(len(terms))
	if relevance > 1.0 {
		return 1.0
	}
	return relevance
}

// DeduplicateResults removes results whose normalized URL was already seen,
// keeping the first occurrence and preserving input order. Idempotent.
func DeduplicateResults(results []SearchResult) []SearchResult {
	seen := make(map[string]bool, len(results))
	unique := make([]SearchResult, 0, len(results))

	for _, r := range results {
		normalized := strings.TrimRight(strings.ToLower(r.URL), "/")
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		unique = append(unique, r)
	}

	return unique
}
