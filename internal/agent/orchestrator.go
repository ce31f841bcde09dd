package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/store"
	"github.com/glowpress/glowpress/internal/telemetry"
)

// Orchestrator sequences the generation stages: research, blog, image,
// social post. Stages run strictly in order; a failure aborts the rest of
// the sequence and nothing is persisted.
type Orchestrator struct {
	research  *ResearchAgent
	blog      *BlogWriterAgent
	image     *ImageGeneratorAgent
	social    *LinkedInPostAgent
	history   *store.HistoryStore
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	imageEnabled bool
}

// NewOrchestrator wires the stage agents together. image may be nil only
// when imageEnabled is false.
func NewOrchestrator(research *ResearchAgent, blog *BlogWriterAgent, image *ImageGeneratorAgent, social *LinkedInPostAgent, history *store.HistoryStore, tele *telemetry.Telemetry, imageEnabled bool) *Orchestrator {
	return &Orchestrator{
		research:     research,
		blog:         blog,
		image:        image,
		social:       social,
		history:      history,
		telemetry:    tele,
		logger:       log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
		imageEnabled: imageEnabled,
	}
}

// Run executes all stages for a topic, persists the completed record and
// returns it. On any stage failure the error is returned and the history
// is left untouched.
func (o *Orchestrator) Run(ctx context.Context, topic string, emit events.Emitter) (*store.ContentRecord, error) {
	startTime := time.Now()
	record := &store.ContentRecord{
		ID:        uuid.New().String(),
		Topic:     topic,
		CreatedAt: startTime,
	}

	emit.Logf(events.StageSystem, "Dispatching ResearchAgent")
	research, err := o.runStage(ctx, "research", func(ctx context.Context) (string, error) {
		return o.research.Run(ctx, topic, emit)
	})
	if err != nil {
		return nil, o.fail(startTime, record, err)
	}
	record.Research = research
	emit.Progress(35)

	emit.Logf(events.StageSystem, "Dispatching BlogWriterAgent")
	blog, err := o.runStage(ctx, "blog", func(ctx context.Context) (string, error) {
		return o.blog.Run(ctx, research, topic, emit)
	})
	if err != nil {
		return nil, o.fail(startTime, record, err)
	}
	record.Blog = blog
	emit.Progress(60)

	if o.imageEnabled && o.image != nil {
		emit.Logf(events.StageSystem, "Dispatching ImageGeneratorAgent")
		stageStart := time.Now()
		asset, err := o.image.Run(ctx, blog, emit)
		o.telemetry.RecordStageEvent(telemetry.StageEvent{
			Stage: "image", Duration: time.Since(stageStart), Success: err == nil, Error: errString(err),
		})
		if err != nil {
			return nil, o.fail(startTime, record, err)
		}
		record.Image = asset
	} else {
		emit.Logf(events.StageSystem, "Image generation disabled, skipping")
	}
	emit.Progress(80)

	emit.Logf(events.StageSystem, "Dispatching LinkedInPostAgent")
	post, err := o.runStage(ctx, "social", func(ctx context.Context) (string, error) {
		return o.social.Run(ctx, blog, emit)
	})
	if err != nil {
		return nil, o.fail(startTime, record, err)
	}
	record.LinkedIn = post
	emit.Progress(95)

	if _, err := o.history.Append(*record); err != nil {
		return nil, o.fail(startTime, record, fmt.Errorf("persisting run: %w", err))
	}

	o.telemetry.RecordRunEvent(telemetry.RunEvent{
		ID: record.ID, Topic: topic, Duration: time.Since(startTime), Success: true,
	})
	emit.Logf(events.StageSystem, "All agents completed")
	return record, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, fn func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	out, err := fn(ctx)
	o.telemetry.RecordStageEvent(telemetry.StageEvent{
		Stage: stage, Duration: time.Since(start), Success: err == nil, Error: errString(err),
	})
	return out, err
}

func (o *Orchestrator) fail(startTime time.Time, record *store.ContentRecord, err error) error {
	o.logger.Printf("run %s aborted: %v", record.ID, err)
	o.telemetry.RecordRunEvent(telemetry.RunEvent{
		ID: record.ID, Topic: record.Topic, Duration: time.Since(startTime), Success: false, Error: err.Error(),
	})
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
