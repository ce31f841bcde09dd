package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/rag"
	"github.com/glowpress/glowpress/internal/store"
	"github.com/glowpress/glowpress/internal/telemetry"
)

// ImageGenerator renders a marketing image from a prompt.
type ImageGenerator interface {
	TextToImage(ctx context.Context, prompt string) ([]byte, error)
	Model() string
}

// ImageGeneratorAgent derives a single image prompt from the blog and
// renders it. Unlike the planner, a malformed prompt payload is a hard
// failure: there is no safe default image.
type ImageGeneratorAgent struct {
	llm       rag.LLM
	generator ImageGenerator
	outputDir string
	telemetry *telemetry.Telemetry
}

func NewImageGeneratorAgent(llm rag.LLM, generator ImageGenerator, outputDir string, tele *telemetry.Telemetry) *ImageGeneratorAgent {
	return &ImageGeneratorAgent{llm: llm, generator: generator, outputDir: outputDir, telemetry: tele}
}

// Run produces the image asset and saves it under the output directory as
// blog_image_<YYYYMMDD_HHMMSS>.png. The returned path is part of the
// contract surface and is served back to the UI.
func (a *ImageGeneratorAgent) Run(ctx context.Context, blog string, emit events.Emitter) (store.ImageAsset, error) {
	emit.Logf(events.StageImage, "ImageGeneratorAgent started")
	emit.Logf(events.StageImage, "Generating single best marketing image prompt")

	response, err := a.llm.Generate(ctx, imagePromptPrompt(blog))
	if err != nil {
		return store.ImageAsset{}, fmt.Errorf("image prompt generation failed: %w", err)
	}
	a.telemetry.RecordLLMRequest()

	jsonStr := rag.ExtractJSON(response)
	if jsonStr == "" {
		return store.ImageAsset{}, fmt.Errorf("failed to parse image prompt JSON: no JSON in response")
	}
	var prompt struct {
		Caption string `json:"caption"`
		Prompt  string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &prompt); err != nil {
		return store.ImageAsset{}, fmt.Errorf("failed to parse image prompt JSON: %w", err)
	}
	if prompt.Prompt == "" {
		return store.ImageAsset{}, fmt.Errorf("image prompt JSON missing prompt field")
	}

	emit.Logf(events.StageImage, "Image prompt generated successfully")
	emit.Logf(events.StageImage, "Generating image using %s", a.generator.Model())

	img, err := a.generator.TextToImage(ctx, prompt.Prompt)
	if err != nil {
		return store.ImageAsset{}, fmt.Errorf("image generation failed: %w", err)
	}

	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return store.ImageAsset{}, fmt.Errorf("creating image output dir: %w", err)
	}
	filename := fmt.Sprintf("blog_image_%s.png", time.Now().Format("20060102_150405"))
	path := filepath.Join(a.outputDir, filename)
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return store.ImageAsset{}, fmt.Errorf("saving image: %w", err)
	}
	a.telemetry.RecordImageGenerated()

	emit.Logf(events.StageImage, "Image generated and saved at %s", path)
	emit.Logf(events.StageImage, "ImageGeneratorAgent completed")

	return store.ImageAsset{
		Caption: prompt.Caption,
		Prompt:  prompt.Prompt,
		Path:    path,
		Model:   a.generator.Model(),
	}, nil
}

func imagePromptPrompt(blog string) string {
	return fmt.Sprintf(`You are a marketing image prompt specialist.

From the blog below, generate ONE single best
high-conversion marketing image idea.

BLOG:
%s

RULES:
- Generate ONLY ONE image
- Image should look premium and realistic
- Suitable for beauty / cosmetic marketing
- Clean background, studio lighting

OUTPUT JSON ONLY:
{
"caption": "...",
"prompt": "..."
}`, blog)
}
