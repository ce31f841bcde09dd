package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glowpress/glowpress/config"
	"github.com/glowpress/glowpress/internal/catalog"
	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/rag"
	"github.com/glowpress/glowpress/internal/store"
	"github.com/glowpress/glowpress/internal/telemetry"
	"github.com/glowpress/glowpress/tools/web_search"
)

// scriptedLLM routes each prompt to a canned answer by a marker substring,
// so one stub serves every stage of the pipeline.
type scriptedLLM struct {
	answers map[string]string
	errOn   string
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if s.errOn != "" && strings.Contains(prompt, s.errOn) {
		return "", errors.New("model unavailable")
	}
	for marker, answer := range s.answers {
		if strings.Contains(prompt, marker) {
			return answer, nil
		}
	}
	return "", errors.New("unscripted prompt: " + prompt[:40])
}

type fixedSearcher struct{}

func (fixedSearcher) Search(ctx context.Context, query string, k int) ([]catalog.Match, error) {
	return []catalog.Match{
		{Record: catalog.ProductRecord{ProductName: "Velvet Rose Perfume", Brand: "Maison Lumi", Category: "perfume", Price: 89.5, Rating: 4.7}, Score: 0.9, Rank: 1},
	}, nil
}

type fixedWebSearcher struct{}

func (fixedWebSearcher) FetchWithContent(ctx context.Context, query string, maxResults int) ([]web_search.Result, error) {
	return []web_search.Result{{URL: "https://example.com/trends", Content: "rose perfumes trend upward"}}, nil
}

type stubImageGen struct{}

func (stubImageGen) TextToImage(ctx context.Context, prompt string) ([]byte, error) {
	return []byte("png-bytes"), nil
}

func (stubImageGen) Model() string { return "stub-image-model" }

func defaultAnswers() map[string]string {
	return map[string]string{
		"query planner":           `{"allowed": true, "top_k": 2, "category": "perfume", "intent": "recommendation"}`,
		"marketing researcher":    "catalog brief",
		"marketing analyst":       "research output",
		"content strategist":      "blog output",
		"image prompt specialist": `{"caption": "hero shot", "prompt": "premium rose perfume bottle, studio lighting"}`,
		"LinkedIn post":           "linkedin output ✨",
	}
}

func newTestOrchestrator(t *testing.T, llm rag.LLM, imageEnabled bool) (*Orchestrator, *store.HistoryStore, *telemetry.Telemetry, string) {
	t.Helper()
	dir := t.TempDir()

	history, err := store.NewHistoryStore(filepath.Join(dir, "history.json"), 10)
	if err != nil {
		t.Fatalf("NewHistoryStore failed: %v", err)
	}
	tele := telemetry.NewTelemetry(config.TelemetryConfig{Enabled: true})

	pipeline := rag.NewPipeline(
		rag.NewPlanner(llm, []string{"beauty", "perfume"}),
		rag.NewChainRegistry(fixedSearcher{}, llm),
	)
	research := NewResearchAgent(pipeline, fixedWebSearcher{}, llm, tele, 3, true)
	blog := NewBlogWriterAgent(llm, tele)
	image := NewImageGeneratorAgent(llm, stubImageGen{}, filepath.Join(dir, "images"), tele)
	social := NewLinkedInPostAgent(llm, tele)

	return NewOrchestrator(research, blog, image, social, history, tele, imageEnabled), history, tele, dir
}

func collectEmitter(logs *[]events.Event, progress *[]int) events.Emitter {
	return func(ev events.Event) {
		switch ev.Kind {
		case events.KindLog:
			*logs = append(*logs, ev)
		case events.KindProgress:
			*progress = append(*progress, ev.Progress)
		}
	}
}

func TestOrchestratorFullRun(t *testing.T) {
	llm := &scriptedLLM{answers: defaultAnswers()}
	orch, history, tele, dir := newTestOrchestrator(t, llm, true)

	var logs []events.Event
	var progress []int
	record, err := orch.Run(context.Background(), "romantic rose perfumes", collectEmitter(&logs, &progress))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if record.ID == "" {
		t.Fatalf("record must have an id")
	}
	if record.Research != "research output" || record.Blog != "blog output" {
		t.Fatalf("unexpected stage outputs: %+v", record)
	}
	if record.LinkedIn != "linkedin output ✨" {
		t.Fatalf("unexpected linkedin output: %q", record.LinkedIn)
	}
	if record.Published {
		t.Fatalf("fresh record must not be published")
	}

	if record.Image.Prompt == "" || record.Image.Model != "stub-image-model" {
		t.Fatalf("image asset incomplete: %+v", record.Image)
	}
	data, err := os.ReadFile(record.Image.Path)
	if err != nil {
		t.Fatalf("image file not written: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("image file content mismatch")
	}
	if !strings.HasPrefix(filepath.Base(record.Image.Path), "blog_image_") || !strings.HasSuffix(record.Image.Path, ".png") {
		t.Fatalf("unexpected image filename: %s", record.Image.Path)
	}
	if filepath.Dir(record.Image.Path) != filepath.Join(dir, "images") {
		t.Fatalf("image saved outside output dir: %s", record.Image.Path)
	}

	stored, err := history.Load()
	if err != nil {
		t.Fatalf("history load failed: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != record.ID {
		t.Fatalf("completed run must be persisted once, got %+v", stored)
	}

	wantProgress := []int{35, 60, 80, 95}
	if len(progress) != len(wantProgress) {
		t.Fatalf("expected progress %v, got %v", wantProgress, progress)
	}
	for i, p := range wantProgress {
		if progress[i] != p {
			t.Fatalf("expected progress %v, got %v", wantProgress, progress)
		}
	}

	var sawDispatch bool
	for _, ev := range logs {
		if ev.Stage == events.StageSystem && strings.Contains(ev.Message, "Dispatching ResearchAgent") {
			sawDispatch = true
		}
	}
	if !sawDispatch {
		t.Fatalf("expected dispatch log events, got %v", logs)
	}

	m := tele.GetMetrics()
	if m.TotalRuns != 1 || m.SuccessfulRuns != 1 {
		t.Fatalf("run telemetry not recorded: %+v", m)
	}
	if m.StageExecutions["research"] != 1 || m.StageExecutions["image"] != 1 {
		t.Fatalf("stage telemetry not recorded: %+v", m.StageExecutions)
	}
	if m.GeneratedImages != 1 {
		t.Fatalf("expected one generated image, got %d", m.GeneratedImages)
	}
}

func TestOrchestratorSkipsImageWhenDisabled(t *testing.T) {
	llm := &scriptedLLM{answers: defaultAnswers()}
	orch, _, _, _ := newTestOrchestrator(t, llm, false)

	var logs []events.Event
	var progress []int
	record, err := orch.Run(context.Background(), "summer body care", collectEmitter(&logs, &progress))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if record.Image.Path != "" {
		t.Fatalf("disabled image stage must leave asset empty: %+v", record.Image)
	}
	var sawSkip bool
	for _, ev := range logs {
		if strings.Contains(ev.Message, "Image generation disabled") {
			sawSkip = true
		}
	}
	if !sawSkip {
		t.Fatalf("expected skip log event")
	}
}

func TestOrchestratorAbortsOnStageFailure(t *testing.T) {
	llm := &scriptedLLM{answers: defaultAnswers(), errOn: "content strategist"}
	orch, history, tele, _ := newTestOrchestrator(t, llm, true)

	_, err := orch.Run(context.Background(), "rose perfume picks", nil)
	if err == nil {
		t.Fatalf("expected blog stage failure to abort the run")
	}

	stored, loadErr := history.Load()
	if loadErr != nil {
		t.Fatalf("history load failed: %v", loadErr)
	}
	if len(stored) != 0 {
		t.Fatalf("failed run must not be persisted, got %+v", stored)
	}

	m := tele.GetMetrics()
	if m.FailedRuns != 1 || m.SuccessfulRuns != 0 {
		t.Fatalf("failure telemetry not recorded: %+v", m)
	}
}

func TestOrchestratorPropagatesDomainRejection(t *testing.T) {
	answers := defaultAnswers()
	answers["query planner"] = `{"allowed": false, "top_k": 5, "category": "unknown", "intent": "unknown"}`
	llm := &scriptedLLM{answers: answers}
	orch, history, _, _ := newTestOrchestrator(t, llm, true)

	_, err := orch.Run(context.Background(), "best mechanical keyboards", nil)
	var rejected *rag.DomainRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected DomainRejectedError, got %v", err)
	}
	stored, _ := history.Load()
	if len(stored) != 0 {
		t.Fatalf("rejected run must not be persisted")
	}
}
