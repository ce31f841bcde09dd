package agent

import (
	"context"
	"fmt"

	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/rag"
	"github.com/glowpress/glowpress/internal/telemetry"
)

// LinkedInPostAgent turns the blog into a short LinkedIn post. Publishing
// is a separate, user-approved step.
type LinkedInPostAgent struct {
	llm       rag.LLM
	telemetry *telemetry.Telemetry
}

func NewLinkedInPostAgent(llm rag.LLM, tele *telemetry.Telemetry) *LinkedInPostAgent {
	return &LinkedInPostAgent{llm: llm, telemetry: tele}
}

// Run generates the post text.
func (a *LinkedInPostAgent) Run(ctx context.Context, blog string, emit events.Emitter) (string, error) {
	emit.Logf(events.StageLinkedIn, "LinkedInPostAgent started")
	emit.Logf(events.StageLinkedIn, "Generating LinkedIn marketing post")

	post, err := a.llm.Generate(ctx, socialPrompt(blog))
	if err != nil {
		return "", fmt.Errorf("linkedin post generation failed: %w", err)
	}
	a.telemetry.RecordLLMRequest()

	emit.Logf(events.StageLinkedIn, "LinkedIn post generation completed")
	return post, nil
}

func socialPrompt(blog string) string {
	return fmt.Sprintf(`Create a high-engagement LinkedIn post from the blog below.

BLOG:
%s

RULES:
- Strong opening hook
- Emojis used naturally (✨🔥💄🛍️)
- Short paragraphs
- Max 4 hashtags
- Under 1300 characters
- Brand-safe, no medical claims

Return ONLY the post text.`, blog)
}
