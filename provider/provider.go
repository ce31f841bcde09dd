package provider

import (
	"context"
	"errors"

	"github.com/glowpress/glowpress/config"
	openrouter_provider "github.com/glowpress/glowpress/provider/openrouter"
)

// Client represents different LLM providers
type Client string

const (
	OpenRouter Client = "openrouter"
	OpenAI     Client = "openai"
)

// Provider is the interface that all LLM implementations must satisfy.
// Generate performs a single text completion; CreateEmbedding embeds the
// given texts with the configured embedding model.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(llm config.LLMConfig, emb config.EmbeddingConfig) (Provider, error) {
	switch Client(llm.Provider) {
	case OpenRouter, OpenAI:
		if llm.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return openrouter_provider.NewClient(
			llm.APIKey,
			llm.BaseURL,
			llm.Model,
			emb.Model,
			llm.Temperature,
			llm.MaxTokens,
			llm.Timeout,
		), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
