package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiURL = "https://api.tavily.com/search"

// Result is one search hit with Tavily's own extracted page content.
type Result struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Search queries Tavily's deep search with raw content inclusion, relying
// on their crawler cache instead of fetching pages directly.
type Search struct {
	apiKey          string
	apiURL          string
	maxContentChars int
	httpClient      *http.Client
}

// NewSearch creates a Tavily client. Each result's raw content is truncated
// to maxContentChars; results without raw content are dropped.
func NewSearch(apiKey string, maxContentChars int, timeout time.Duration) *Search {
	if maxContentChars <= 0 {
		maxContentChars = 4000
	}
	return &Search{
		apiKey:          apiKey,
		apiURL:          apiURL,
		maxContentChars: maxContentChars,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// FetchWithContent runs the search. Service errors propagate to the caller;
// there is no retry.
func (s *Search) FetchWithContent(ctx context.Context, q string, maxResults int) ([]Result, error) {
	// https://docs.tavily.com/ search API
	payload := map[string]any{
		"api_key":             s.apiKey,
		"query":               q,
		"search_depth":        "advanced",
		"max_results":         maxResults,
		"include_raw_content": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(b))
	}

	var raw struct {
		Results []struct {
			URL        string `json:"url"`
			RawContent string `json:"raw_content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var out []Result
	for _, item := range raw.Results {
		if item.RawContent == "" {
			continue
		}
		content := item.RawContent
		if len(content) > s.maxContentChars {
			content = content[:s.maxContentChars]
		}
		out = append(out, Result{URL: item.URL, Content: content})
	}
	return out, nil
}
