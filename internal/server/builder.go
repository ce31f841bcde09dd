package server

import (
	"context"
	"fmt"

	"github.com/glowpress/glowpress/config"
	"github.com/glowpress/glowpress/internal/agent"
	"github.com/glowpress/glowpress/internal/catalog"
	"github.com/glowpress/glowpress/internal/rag"
	"github.com/glowpress/glowpress/internal/store"
	"github.com/glowpress/glowpress/internal/telemetry"
	"github.com/glowpress/glowpress/provider"
	"github.com/glowpress/glowpress/tools/image_gen/huggingface"
	"github.com/glowpress/glowpress/tools/web_search"
)

// Deps holds the shared application dependencies wired from config.
type Deps struct {
	Config    *config.Config
	Provider  provider.Provider
	Index     *catalog.Index
	Chains    *rag.ChainRegistry
	History   *store.HistoryStore
	Telemetry *telemetry.Telemetry
	Orch      *agent.Orchestrator
	Runner    *agent.Runner
}

// Build wires the full pipeline from config (top-level DI).
func Build(ctx context.Context, cfg *config.Config) (*Deps, error) {
	prov, err := provider.NewProvider(cfg.LLM, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	index, err := catalog.BuildIndex(ctx, cfg.Catalog.CSVPath, cfg.Catalog.IndexPath, prov)
	if err != nil {
		return nil, fmt.Errorf("catalog index: %w", err)
	}

	planner := rag.NewPlanner(prov, cfg.Catalog.AllowedDomains)
	chains := rag.NewChainRegistry(index, prov)
	pipeline := rag.NewPipeline(planner, chains)

	var searcher web_search.WebSearcher
	if cfg.Features.WebSearch {
		searcher, err = web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.TavilyAPIKey, cfg.Search.MaxContentChars, cfg.Search.Timeout)
		if err != nil {
			return nil, fmt.Errorf("web searcher: %w", err)
		}
	}

	history, err := store.NewHistoryStore(cfg.History.Path, cfg.History.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)

	imageClient := huggingface.NewClient(cfg.Image.HFToken, cfg.Image.Model, cfg.Image.Timeout)

	research := agent.NewResearchAgent(pipeline, searcher, prov, tele, cfg.Search.MaxResults, cfg.Features.WebSearch)
	blog := agent.NewBlogWriterAgent(prov, tele)
	image := agent.NewImageGeneratorAgent(prov, imageClient, cfg.Image.OutputDir, tele)
	social := agent.NewLinkedInPostAgent(prov, tele)

	orch := agent.NewOrchestrator(research, blog, image, social, history, tele, cfg.Features.ImageGen)
	runner := agent.NewRunner(orch)

	return &Deps{
		Config:    cfg,
		Provider:  prov,
		Index:     index,
		Chains:    chains,
		History:   history,
		Telemetry: tele,
		Orch:      orch,
		Runner:    runner,
	}, nil
}
