package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// SearchResult is a single ranked document returned by the evidence source.
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// SearchResponse is the full answer for one query.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// TavilyClient calls the Tavily search API. Retries with exponential backoff
// live here, not in the orchestration core: exhausted retries surface as a
// plain error that the collector treats like any other recoverable failure.
type TavilyClient struct {
	APIKey     string
	HTTPClient *http.Client
	BaseURL    string
	MaxRetries int
	Logger     *slog.Logger
}

// NewTavilyClient creates a search client with default timeouts and retries.
func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    tavilyEndpoint,
		MaxRetries: 3,
		Logger:     slog.Default(),
	}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

// Search issues a query and returns ranked results. maxResults is capped
// server-side; depth is "basic" or "advanced".
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int, depth string) (*SearchResponse, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("tavily api key is not set")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if depth == "" {
		depth = "advanced"
	}

	var lastErr error
	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s, 8s.
			wait := time.Duration(1<<attempt) * time.Second
			c.Logger.Warn("Retrying search", "query", query, "attempt", attempt+1, "wait", wait, "last_error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doSearch(ctx, query, maxResults, depth)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("search failed after %d attempts: %w", c.MaxRetries, lastErr)
}

func (c *TavilyClient) doSearch(ctx context.Context, query string, maxResults int, depth string) (*SearchResponse, error) {
	reqBody := tavilyRequest{
		APIKey:        c.APIKey,
		Query:         query,
		MaxResults:    maxResults,
		SearchDepth:   depth,
		IncludeAnswer: true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned non-200 status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed SearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}
	parsed.Query = query

	c.Logger.Info("Search completed", "query", query, "results", len(parsed.Results))
	return &parsed, nil
}
