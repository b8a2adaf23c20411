// Package websearch implements the live-search evidence provider backed by
// the Tavily search API.
package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/adaptive-rag/adaptive"
	"github.com/sweetpotato0/adaptive-rag/errors"
	"github.com/sweetpotato0/adaptive-rag/pkg/logging"
)

const defaultBaseURL = "https://api.tavily.com"

// Client queries Tavily and adapts its results into pipeline evidence.
type Client struct {
	http       *resty.Client
	apiKey     string
	maxResults int
	depth      string
	logger     *slog.Logger
}

// Option customises the search client.
type Option func(*Client)

// WithMaxResults caps how many results a search returns (default 5).
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithSearchDepth selects "basic" or "advanced" search.
func WithSearchDepth(depth string) Option {
	return func(c *Client) {
		if depth != "" {
			c.depth = depth
		}
	}
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.http.SetBaseURL(url)
		}
	}
}

// New creates a Tavily search client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: tavily API key is required", errors.ErrConfiguration)
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Content-Type", "application/json"),
		apiKey:     apiKey,
		maxResults: 5,
		logger:     logging.WithComponent("websearch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth,omitempty"`
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Fetch implements adaptive.Provider with one live search call.
func (c *Client) Fetch(ctx context.Context, query string) ([]adaptive.Evidence, error) {
	var result searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(searchRequest{
			APIKey:      c.apiKey,
			Query:       query,
			MaxResults:  c.maxResults,
			SearchDepth: c.depth,
		}).
		SetResult(&result).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tavily search: status %d: %s", resp.StatusCode(), resp.String())
	}

	evidence := make([]adaptive.Evidence, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Content == "" {
			continue
		}
		evidence = append(evidence, adaptive.Evidence{
			Content: r.Content,
			Source:  r.URL,
		})
	}
	c.logger.Info("web search completed", "results", len(evidence))
	return evidence, nil
}
