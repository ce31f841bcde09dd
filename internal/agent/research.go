package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/rag"
	"github.com/glowpress/glowpress/internal/telemetry"
	"github.com/glowpress/glowpress/tools/web_search"
)

// maxWebSnippets bounds how many web results feed the research synthesis.
const maxWebSnippets = 3

// ResearchAgent combines catalog retrieval with external web intelligence
// and synthesizes a research brief for the blog stage.
type ResearchAgent struct {
	pipeline   *rag.Pipeline
	searcher   web_search.WebSearcher
	llm        rag.LLM
	telemetry  *telemetry.Telemetry
	maxResults int
	webEnabled bool
}

// NewResearchAgent creates the research stage. searcher may be nil when web
// search is disabled.
func NewResearchAgent(pipeline *rag.Pipeline, searcher web_search.WebSearcher, llm rag.LLM, tele *telemetry.Telemetry, maxResults int, webEnabled bool) *ResearchAgent {
	return &ResearchAgent{
		pipeline:   pipeline,
		searcher:   searcher,
		llm:        llm,
		telemetry:  tele,
		maxResults: maxResults,
		webEnabled: webEnabled,
	}
}

// Run produces the research brief for a topic. Search or model failures
// propagate unchanged; a rejected domain aborts before any retrieval.
func (a *ResearchAgent) Run(ctx context.Context, topic string, emit events.Emitter) (string, error) {
	emit.Logf(events.StageResearch, "ResearchAgent started")

	var snippets []string
	if a.webEnabled && a.searcher != nil {
		emit.Logf(events.StageResearch, "Fetching cached web intelligence")
		results, err := a.searcher.FetchWithContent(ctx, topic, a.maxResults)
		if err != nil {
			return "", fmt.Errorf("web intelligence fetch failed: %w", err)
		}
		a.telemetry.RecordWebSearch()
		for _, r := range results {
			if len(snippets) >= maxWebSnippets {
				break
			}
			emit.Logf(events.StageResearch, "Using web data from: %s", r.URL)
			snippets = append(snippets, r.Content)
		}
	}

	emit.Logf(events.StageResearch, "Running internal product RAG")
	brief, err := a.pipeline.Run(ctx, topic, snippets, emit)
	if err != nil {
		return "", err
	}
	a.telemetry.RecordLLMRequest()

	emit.Logf(events.StageResearch, "Synthesizing research output")
	research, err := a.llm.Generate(ctx, researchPrompt(brief.Text, strings.Join(snippets, "\n\n"), topic))
	if err != nil {
		return "", fmt.Errorf("research synthesis failed: %w", err)
	}
	a.telemetry.RecordLLMRequest()

	emit.Logf(events.StageResearch, "Research synthesis completed")
	return research, nil
}

func researchPrompt(catalog, web, topic string) string {
	return fmt.Sprintf(`You are a senior beauty product marketing analyst.

INTERNAL PRODUCT CATALOG (SOURCE OF TRUTH):
%s

EXTERNAL MARKET INTELLIGENCE:
%s

TASK:
1. Select best-matching catalog products
2. Add competitive positioning (non-medical)
3. Highlight pricing and rating advantages
4. Produce a structured research brief for blog creation

TOPIC:
%s`, catalog, web, topic)
}
