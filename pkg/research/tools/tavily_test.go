package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTavilyClient(serverURL string) *TavilyClient {
	c := NewTavilyClient("test-key")
	c.BaseURL = serverURL
	c.MaxRetries = 1
	return c
}

func TestTavilySearchSuccess(t *testing.T) {
	var gotReq tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(SearchResponse{
			Answer: "summary answer",
			Results: []SearchResult{
				{Title: "EV adoption report", URL: "https://example.gov/ev", Content: "details", Score: 0.91},
				{Title: "Market outlook", URL: "https://example.com/outlook", Content: "more", Score: 0.55},
			},
		})
	}))
	defer server.Close()

	client := newTestTavilyClient(server.URL)
	resp, err := client.Search(context.Background(), "ev market trends", 5, "advanced")
	require.NoError(t, err)

	assert.Equal(t, "ev market trends", resp.Query)
	assert.Equal(t, "summary answer", resp.Answer)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://example.gov/ev", resp.Results[0].URL)

	assert.Equal(t, "test-key", gotReq.APIKey)
	assert.Equal(t, "ev market trends", gotReq.Query)
	assert.Equal(t, 5, gotReq.MaxResults)
	assert.Equal(t, "advanced", gotReq.SearchDepth)
	assert.True(t, gotReq.IncludeAnswer)
}

func TestTavilySearchDefaults(t *testing.T) {
	var gotReq tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer server.Close()

	client := newTestTavilyClient(server.URL)
	_, err := client.Search(context.Background(), "anything", 0, "")
	require.NoError(t, err)

	assert.Equal(t, 5, gotReq.MaxResults)
	assert.Equal(t, "advanced", gotReq.SearchDepth)
}

func TestTavilySearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestTavilyClient(server.URL)
	resp, err := client.Search(context.Background(), "ev market trends", 5, "advanced")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "search failed after 1 attempts")
}

func TestTavilySearchMissingAPIKey(t *testing.T) {
	client := NewTavilyClient("")
	resp, err := client.Search(context.Background(), "ev market trends", 5, "advanced")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "api key is not set")
}

func TestTavilySearchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestTavilyClient(server.URL)
	client.MaxRetries = 3

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "ev market trends", 5, "advanced")
	require.Error(t, err)
}
