package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"llm": {"api_key": "sk-test", "model": "vendor/chat-model"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Fatalf("default address: %q", cfg.Server.Address)
	}
	if cfg.LLM.Provider != "openrouter" || cfg.LLM.Temperature != 0.3 {
		t.Fatalf("llm defaults not applied: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 2*time.Minute {
		t.Fatalf("llm timeout default: %v", cfg.LLM.Timeout)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Fatalf("embedding default: %q", cfg.Embedding.Model)
	}
	if cfg.History.MaxEntries != 10 || cfg.History.Path != "history.json" {
		t.Fatalf("history defaults: %+v", cfg.History)
	}
	if cfg.Search.MaxContentChars != 4000 || cfg.Search.Provider != "tavily" {
		t.Fatalf("search defaults: %+v", cfg.Search)
	}
	if cfg.LinkedIn.Timeout != 15*time.Second {
		t.Fatalf("linkedin timeout default: %v", cfg.LinkedIn.Timeout)
	}
	if !cfg.Features.WebSearch || !cfg.Features.ImageGen || cfg.Features.Publish {
		t.Fatalf("feature defaults: %+v", cfg.Features)
	}

	domains := strings.Join(cfg.Catalog.AllowedDomains, ",")
	for _, want := range []string{"beauty", "cosmetic", "perfume", "fragrance", "body-care"} {
		if !strings.Contains(domains, want) {
			t.Fatalf("allowed domains missing %q: %v", want, cfg.Catalog.AllowedDomains)
		}
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"llm": {"model": "vendor/chat-model", "temperature": 0.7},
		"server": {"address": ":9090"},
		"history": {"max_entries": 3}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("temperature override: %v", cfg.LLM.Temperature)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("address override: %q", cfg.Server.Address)
	}
	if cfg.History.MaxEntries != 3 {
		t.Fatalf("history override: %d", cfg.History.MaxEntries)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GLOWPRESS_SERVER_ADDRESS", ":7070")
	path := writeConfig(t, `{"llm": {"model": "vendor/chat-model"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("environment must override file and defaults, got %q", cfg.Server.Address)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing model", `{}`, "llm.model"},
		{"temperature range", `{"llm": {"model": "m", "temperature": 3.5}}`, "llm.temperature"},
		{"history cap", `{"llm": {"model": "m"}, "history": {"max_entries": 0}}`, "history.max_entries"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.content)
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getting working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("changing directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})

	// No config file anywhere on the search path: loading proceeds with
	// defaults and fails only on validation of the unset model.
	_, err = LoadConfig("")
	if err == nil || !strings.Contains(err.Error(), "llm.model") {
		t.Fatalf("expected validation error about llm.model, got %v", err)
	}
}
