package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestSearch(t *testing.T, maxChars int, handler http.HandlerFunc) (*Search, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewSearch("test-key", maxChars, 5*time.Second)
	s.apiURL = srv.URL
	return s, srv
}

func TestFetchWithContentRequestShape(t *testing.T) {
	var captured map[string]any
	s, _ := newTestSearch(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	if _, err := s.FetchWithContent(context.Background(), "rose perfume trends", 4); err != nil {
		t.Fatalf("FetchWithContent failed: %v", err)
	}

	if captured["api_key"] != "test-key" || captured["query"] != "rose perfume trends" {
		t.Fatalf("unexpected request payload: %v", captured)
	}
	if captured["search_depth"] != "advanced" {
		t.Fatalf("search depth must be advanced, got %v", captured["search_depth"])
	}
	if captured["include_raw_content"] != true {
		t.Fatalf("raw content must be requested")
	}
	if captured["max_results"] != float64(4) {
		t.Fatalf("unexpected max_results: %v", captured["max_results"])
	}
}

func TestFetchWithContentTruncatesAndDropsEmpty(t *testing.T) {
	long := strings.Repeat("x", 250)
	s, _ := newTestSearch(t, 100, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"url": "https://a.example", "raw_content": long},
				{"url": "https://b.example", "raw_content": ""},
				{"url": "https://c.example", "raw_content": "short"},
			},
		})
	})

	results, err := s.FetchWithContent(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("FetchWithContent failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("empty raw content must be dropped, got %d results", len(results))
	}
	if len(results[0].Content) != 100 {
		t.Fatalf("content must be truncated to 100 chars, got %d", len(results[0].Content))
	}
	if results[1].URL != "https://c.example" || results[1].Content != "short" {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestFetchWithContentServiceError(t *testing.T) {
	s, _ := newTestSearch(t, 0, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := s.FetchWithContent(context.Background(), "q", 5)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("service errors must propagate with status, got %v", err)
	}
}

func TestNewSearchDefaultsMaxContentChars(t *testing.T) {
	s := NewSearch("k", 0, time.Second)
	if s.maxContentChars != 4000 {
		t.Fatalf("default truncation must be 4000, got %d", s.maxContentChars)
	}
}
