package web_search

import (
	"context"
	"errors"
	"time"

	"github.com/glowpress/glowpress/tools/web_search/tavily"
)

// Result is one web intelligence hit with its extracted page content.
type Result = tavily.Result

// WebSearcher fetches external market intelligence for a query.
type WebSearcher interface {
	FetchWithContent(ctx context.Context, q string, maxResults int) ([]Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
)

var ErrUnsupportedProvider = errors.New("unsupported web search provider")

// NewWebSearcher builds the configured search client. maxContentChars caps
// each result's raw content to keep downstream token usage bounded.
func NewWebSearcher(provider Provider, apiKey string, maxContentChars int, timeout time.Duration) (WebSearcher, error) {
	switch provider {
	case TavilyProvider:
		return tavily.NewSearch(apiKey, maxContentChars, timeout), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
