package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/glowpress/glowpress/internal/catalog"
	"github.com/glowpress/glowpress/internal/events"
)

// Searcher is the slice of the catalog index the pipeline needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]catalog.Match, error)
}

// Brief is the synthesized research output of a retrieval run.
type Brief struct {
	Text    string
	Matches []catalog.Match
}

// Chain binds a result count to the retrieval and generation steps. Chains
// are built lazily per top_k by the registry and must not be mutated by
// callers.
type Chain struct {
	topK  int
	index Searcher
	llm   LLM
}

// Run retrieves the top-k catalog matches, assembles the grounding context
// together with any supplied web snippets and generates the brief against
// that context only.
func (c *Chain) Run(ctx context.Context, query string, webSnippets []string) (Brief, error) {
	matches, err := c.index.Search(ctx, query, c.topK)
	if err != nil {
		return Brief{}, fmt.Errorf("catalog search failed: %w", err)
	}

	grounding := buildContext(matches, webSnippets)
	text, err := c.llm.Generate(ctx, briefPrompt(grounding, query))
	if err != nil {
		return Brief{}, fmt.Errorf("brief generation failed: %w", err)
	}
	return Brief{Text: text, Matches: matches}, nil
}

func buildContext(matches []catalog.Match, webSnippets []string) string {
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Record.Text())
	}
	if len(webSnippets) > 0 {
		b.WriteString("\n\nWEB SNIPPETS:\n")
		b.WriteString(strings.Join(webSnippets, "\n\n"))
	}
	return b.String()
}

func briefPrompt(grounding, query string) string {
	return fmt.Sprintf(`You are a beauty product marketing researcher.

Use ONLY the following catalog data:
%s

User topic:
%s

TASK:
- Identify relevant products
- Compare pricing and ratings
- Highlight consumer value
- Avoid medical or ingredient claims
- Stay marketing-safe`, grounding, query)
}

// ChainRegistry memoizes chains by requested result count. It replaces the
// original's ambient per-process caching with an explicit owner that can be
// invalidated.
type ChainRegistry struct {
	index  Searcher
	llm    LLM
	mu     sync.Mutex
	chains map[int]*Chain
}

// NewChainRegistry creates a registry over the given index and model.
func NewChainRegistry(index Searcher, llm LLM) *ChainRegistry {
	return &ChainRegistry{index: index, llm: llm, chains: make(map[int]*Chain)}
}

// Get returns the chain for the given result count, constructing it on
// first request.
func (r *ChainRegistry) Get(topK int) *Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chains[topK]; ok {
		return c
	}
	c := &Chain{topK: topK, index: r.index, llm: r.llm}
	r.chains[topK] = c
	return c
}

// Invalidate drops every memoized chain, e.g. after an index rebuild.
func (r *ChainRegistry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains = make(map[int]*Chain)
}

// Pipeline combines the query planner with catalog retrieval and grounded
// brief generation, enforcing the domain allow-list.
type Pipeline struct {
	planner *Planner
	chains  *ChainRegistry
}

// NewPipeline wires the planner and chain registry together.
func NewPipeline(planner *Planner, chains *ChainRegistry) *Pipeline {
	return &Pipeline{planner: planner, chains: chains}
}

// Run plans the query, rejects out-of-domain topics before any retrieval,
// and otherwise returns the grounded research brief.
func (p *Pipeline) Run(ctx context.Context, query string, webSnippets []string, emit events.Emitter) (Brief, error) {
	plan, err := p.planner.Plan(ctx, query, emit)
	if err != nil {
		return Brief{}, err
	}
	if !plan.Allowed {
		return Brief{}, &DomainRejectedError{Query: query}
	}

	emit.Logf(events.StageResearch, "Planner decided top_k=%d", plan.TopK)

	return p.chains.Get(plan.TopK).Run(ctx, query, webSnippets)
}
