package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/glowpress/glowpress/internal/catalog"
)

type stubSearcher struct {
	matches []catalog.Match
	lastK   int
	calls   int
}

func (s *stubSearcher) Search(ctx context.Context, query string, k int) ([]catalog.Match, error) {
	s.lastK = k
	s.calls++
	return s.matches, nil
}

// plannerLLM answers the planner prompt with a canned plan and every other
// prompt with a canned brief.
type plannerLLM struct {
	plan    string
	brief   string
	prompts []string
}

func (s *plannerLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if strings.Contains(prompt, "query planner") {
		return s.plan, nil
	}
	return s.brief, nil
}

func sampleMatches() []catalog.Match {
	return []catalog.Match{
		{Record: catalog.ProductRecord{ProductName: "Velvet Rose Eau de Parfum", Brand: "Maison Lumi", Category: "perfume", Price: 89.5, Rating: 4.7}, Score: 0.92, Rank: 1},
		{Record: catalog.ProductRecord{ProductName: "Silk Hydration Cream", Brand: "Derma Pure", Category: "bodycare", Price: 24.0, Rating: 4.3}, Score: 0.81, Rank: 2},
	}
}

func TestPipelineRejectsOutOfDomain(t *testing.T) {
	llm := &plannerLLM{plan: `{"allowed": false, "top_k": 5, "category": "unknown", "intent": "unknown"}`}
	searcher := &stubSearcher{matches: sampleMatches()}
	p := NewPipeline(NewPlanner(llm, []string{"beauty"}), NewChainRegistry(searcher, llm))

	_, err := p.Run(context.Background(), "best gaming laptops", nil, nil)
	var rejected *DomainRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected DomainRejectedError, got %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("rejected query must not hit the index")
	}
	if !strings.Contains(rejected.Error(), "beauty, cosmetic, perfume, or body-care") {
		t.Fatalf("unexpected rejection message: %q", rejected.Error())
	}
}

func TestPipelineGroundsGenerationOnRetrieval(t *testing.T) {
	llm := &plannerLLM{
		plan:  `{"allowed": true, "top_k": 2, "category": "perfume", "intent": "recommendation"}`,
		brief: "A grounded research brief.",
	}
	searcher := &stubSearcher{matches: sampleMatches()}
	p := NewPipeline(NewPlanner(llm, []string{"beauty"}), NewChainRegistry(searcher, llm))

	brief, err := p.Run(context.Background(), "romantic perfume picks", []string{"rose fragrance sales grew 12% this year"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if brief.Text != "A grounded research brief." {
		t.Fatalf("unexpected brief text: %q", brief.Text)
	}
	if len(brief.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(brief.Matches))
	}
	if searcher.lastK != 2 {
		t.Fatalf("planner top_k must drive retrieval, got k=%d", searcher.lastK)
	}

	// Second prompt is the grounded generation call.
	if len(llm.prompts) != 2 {
		t.Fatalf("expected planner + generation calls, got %d", len(llm.prompts))
	}
	gen := llm.prompts[1]
	if !strings.Contains(gen, "Velvet Rose Eau de Parfum") {
		t.Fatalf("generation prompt missing catalog grounding:\n%s", gen)
	}
	if !strings.Contains(gen, "WEB SNIPPETS:") || !strings.Contains(gen, "rose fragrance sales grew 12%") {
		t.Fatalf("generation prompt missing web snippets:\n%s", gen)
	}
	if !strings.Contains(gen, "romantic perfume picks") {
		t.Fatalf("generation prompt missing user topic:\n%s", gen)
	}
}

func TestPipelineOmitsWebSectionWithoutSnippets(t *testing.T) {
	llm := &plannerLLM{
		plan:  `{"allowed": true, "top_k": 1, "category": "cosmetic", "intent": "informational"}`,
		brief: "brief",
	}
	searcher := &stubSearcher{matches: sampleMatches()[:1]}
	p := NewPipeline(NewPlanner(llm, []string{"beauty"}), NewChainRegistry(searcher, llm))

	if _, err := p.Run(context.Background(), "what is a toner", nil, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(llm.prompts[1], "WEB SNIPPETS:") {
		t.Fatalf("web snippet section must be omitted when no snippets are supplied")
	}
}

func TestChainRegistryMemoizesAndInvalidates(t *testing.T) {
	searcher := &stubSearcher{}
	r := NewChainRegistry(searcher, &plannerLLM{})

	a := r.Get(5)
	if a != r.Get(5) {
		t.Fatalf("same top_k must return the same chain")
	}
	if a == r.Get(7) {
		t.Fatalf("different top_k must return different chains")
	}

	r.Invalidate()
	if a == r.Get(5) {
		t.Fatalf("Invalidate must drop memoized chains")
	}
}
