package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the content pipeline
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Search    SearchConfig    `mapstructure:"search"`
	Image     ImageConfig     `mapstructure:"image"`
	LinkedIn  LinkedInConfig  `mapstructure:"linkedin"`
	History   HistoryConfig   `mapstructure:"history"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	AppName  string `mapstructure:"app_name"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the completion provider configuration.
// Every generation stage shares the same model and temperature.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0,2]")
	}
	return nil
}

// EmbeddingConfig contains the embedding model configuration. The same
// model must be used at index build time and at query time.
type EmbeddingConfig struct {
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

func (e EmbeddingConfig) Validate() error {
	if strings.TrimSpace(e.Model) == "" {
		return fmt.Errorf("embedding.model is required")
	}
	return nil
}

// CatalogConfig points at the product catalog and its persisted index.
type CatalogConfig struct {
	CSVPath        string   `mapstructure:"csv_path"`
	IndexPath      string   `mapstructure:"index_path"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

func (c CatalogConfig) Validate() error {
	if strings.TrimSpace(c.CSVPath) == "" {
		return fmt.Errorf("catalog.csv_path is required")
	}
	if strings.TrimSpace(c.IndexPath) == "" {
		return fmt.Errorf("catalog.index_path is required")
	}
	return nil
}

// SearchConfig contains web intelligence settings
type SearchConfig struct {
	Provider        string        `mapstructure:"provider"`
	TavilyAPIKey    string        `mapstructure:"tavily_api_key"`
	MaxResults      int           `mapstructure:"max_results"`
	MaxContentChars int           `mapstructure:"max_content_chars"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ImageConfig contains image generation settings
type ImageConfig struct {
	HFToken   string        `mapstructure:"hf_token"`
	Model     string        `mapstructure:"model"`
	OutputDir string        `mapstructure:"output_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LinkedInConfig contains publish settings for the UGC post endpoint
type LinkedInConfig struct {
	AccessToken string        `mapstructure:"access_token"`
	UserID      string        `mapstructure:"user_id"`
	UGCURL      string        `mapstructure:"ugc_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HistoryConfig contains run history persistence settings
type HistoryConfig struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

func (h HistoryConfig) Validate() error {
	if h.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be > 0")
	}
	return nil
}

// FeaturesConfig contains feature toggles
type FeaturesConfig struct {
	WebSearch bool `mapstructure:"web_search"`
	ImageGen  bool `mapstructure:"image_gen"`
	Publish   bool `mapstructure:"publish"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PeriodicLogs bool `mapstructure:"periodic_logs"`
}

// LoadConfig loads config from file, applying defaults and GLOWPRESS_*
// environment overrides. A missing file is not an error; defaults plus
// environment cover every key.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.app_name", "GlowPress Content Studio")
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.data_dir", "data")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("catalog.csv_path", "data/products.csv")
	v.SetDefault("catalog.index_path", "data/catalog_index.bin")
	v.SetDefault("catalog.allowed_domains", []string{"beauty", "cosmetic", "perfume", "fragrance", "body-care"})
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.max_content_chars", 4000)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("image.output_dir", "generated_images")
	v.SetDefault("image.timeout", 2*time.Minute)
	v.SetDefault("linkedin.ugc_url", "https://api.linkedin.com/v2/ugcPosts")
	v.SetDefault("linkedin.timeout", 15*time.Second)
	v.SetDefault("history.path", "history.json")
	v.SetDefault("history.max_entries", 10)
	v.SetDefault("features.web_search", true)
	v.SetDefault("features.image_gen", true)
	v.SetDefault("features.publish", false)
	v.SetDefault("telemetry.enabled", true)

	if path == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("GLOWPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section that has invariants.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return c.History.Validate()
}
