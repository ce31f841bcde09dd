package agent

import (
	"context"
	"fmt"

	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/rag"
	"github.com/glowpress/glowpress/internal/telemetry"
)

// BlogWriterAgent drafts the marketing blog from the research brief.
type BlogWriterAgent struct {
	llm       rag.LLM
	telemetry *telemetry.Telemetry
}

func NewBlogWriterAgent(llm rag.LLM, tele *telemetry.Telemetry) *BlogWriterAgent {
	return &BlogWriterAgent{llm: llm, telemetry: tele}
}

// Run generates the blog text.
func (a *BlogWriterAgent) Run(ctx context.Context, research, topic string, emit events.Emitter) (string, error) {
	emit.Logf(events.StageBlog, "BlogWriterAgent started")
	emit.Logf(events.StageBlog, "Drafting marketing blog")

	blog, err := a.llm.Generate(ctx, blogPrompt(research, topic))
	if err != nil {
		return "", fmt.Errorf("blog generation failed: %w", err)
	}
	a.telemetry.RecordLLMRequest()

	emit.Logf(events.StageBlog, "Blog generation completed")
	return blog, nil
}

func blogPrompt(research, topic string) string {
	return fmt.Sprintf(`You are a professional beauty brand content strategist.

RESEARCH INPUT:
%s

TOPIC:
%s

BLOG REQUIREMENTS:
- SEO-friendly headings
- Consumer-centric benefits
- Pricing/rating mentions where applicable
- No medical or ingredient claims
- Premium but friendly tone

STRUCTURE:
1. Engaging introduction
2. Product-focused sections
3. Why customers prefer these options
4. Buying considerations
5. Soft CTA

Insert exactly 3-4 image placeholders like:
[IMAGE: short descriptive caption]`, research, topic)
}
