package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/glowpress/glowpress/internal/events"
)

// LLM is the slice of the provider the retrieval subsystem needs.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QueryPlan is the result of planning a user query. Created fresh per
// query, never persisted, never cached.
type QueryPlan struct {
	Allowed  bool   `json:"allowed"`
	TopK     int    `json:"top_k"`
	Category string `json:"category"`
	Intent   string `json:"intent"`
}

const (
	defaultTopK  = 6
	minTopK      = 1
	maxTopK      = 20
	failSafeTopK = 5
)

var knownCategories = map[string]bool{
	"perfume": true, "cosmetic": true, "bodycare": true, "mixed": true, "unknown": true,
}

var knownIntents = map[string]bool{
	"list": true, "comparison": true, "recommendation": true, "informational": true, "unknown": true,
}

// failSafePlan is returned whenever the model response cannot be parsed:
// the pipeline degrades to a rejection instead of crashing.
func failSafePlan() QueryPlan {
	return QueryPlan{Allowed: false, TopK: failSafeTopK, Category: "unknown", Intent: "unknown"}
}

// Planner classifies and sizes a free-text query with a structured-output
// model call.
type Planner struct {
	llm     LLM
	domains []string
	logger  *log.Logger
}

// NewPlanner creates a planner gating queries against the given domain
// allow-list.
func NewPlanner(llm LLM, domains []string) *Planner {
	return &Planner{
		llm:     llm,
		domains: domains,
		logger:  log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Plan runs the semantic query planner. A model transport failure
// propagates; a malformed model response does not — it degrades to the
// fail-safe plan.
func (p *Planner) Plan(ctx context.Context, query string, emit events.Emitter) (QueryPlan, error) {
	if strings.TrimSpace(query) == "" {
		return QueryPlan{}, fmt.Errorf("query must not be empty")
	}

	emit.Logf(events.StageResearch, "Running semantic query planner")

	response, err := p.llm.Generate(ctx, p.prompt(query))
	if err != nil {
		return QueryPlan{}, fmt.Errorf("planner generation failed: %w", err)
	}

	plan := p.parse(response)
	emit.Logf(events.StageResearch,
		"Planner output → allowed=%t, top_k=%d, category=%s, intent=%s",
		plan.Allowed, plan.TopK, plan.Category, plan.Intent)
	return plan, nil
}

func (p *Planner) prompt(query string) string {
	return fmt.Sprintf(`You are a query planner for a beauty product search system.

User query:
"%s"

Decide:
1. Is the query related to %s products?
2. How many products should be retrieved? (default %d)
3. What is the main product category?
4. What is the user intent?

Rules:
- If user asks "top N", use N
- If list/comparison intent, increase results
- Keep top_k between %d and %d

Return ONLY valid JSON:
{
"allowed": true or false,
"top_k": number,
"category": "perfume | cosmetic | bodycare | mixed | unknown",
"intent": "list | comparison | recommendation | informational"
}`, query, strings.Join(p.domains, ", "), defaultTopK, minTopK, maxTopK)
}

// parse extracts and validates the plan. Any failure yields the fail-safe
// plan; out-of-range counts are clamped, never rejected.
func (p *Planner) parse(response string) QueryPlan {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		p.logger.Printf("no JSON in planner response, using fail-safe plan")
		return failSafePlan()
	}

	var raw struct {
		Allowed  *bool    `json:"allowed"`
		TopK     *float64 `json:"top_k"`
		Category string   `json:"category"`
		Intent   string   `json:"intent"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		p.logger.Printf("planner response parse failed: %v, using fail-safe plan", err)
		return failSafePlan()
	}
	if raw.Allowed == nil {
		p.logger.Printf("planner response missing allowed flag, using fail-safe plan")
		return failSafePlan()
	}

	topK := defaultTopK
	if raw.TopK != nil {
		topK = int(*raw.TopK)
	}
	if topK < minTopK {
		topK = minTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	category := strings.ToLower(strings.TrimSpace(raw.Category))
	if !knownCategories[category] {
		category = "unknown"
	}
	intent := strings.ToLower(strings.TrimSpace(raw.Intent))
	if !knownIntents[intent] {
		intent = "unknown"
	}

	return QueryPlan{Allowed: *raw.Allowed, TopK: topK, Category: category, Intent: intent}
}

// ExtractJSON returns the first balanced top-level JSON object in s, which
// tolerates prose or code fences around the payload.
func ExtractJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
