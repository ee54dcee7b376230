package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/finscope/finscope/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Cache CacheConfig `yaml:"cache" json:"cache" jsonschema:"description=TTL cache configuration"`

	Feeds []Feed `yaml:"feeds" json:"feeds" jsonschema:"description=Feed sources to aggregate"`

	Schedule struct {
		RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" jsonschema:"default=30m,description=Aggregated feed refresh interval"`
		SourceTimeout   time.Duration `yaml:"source_timeout" json:"source_timeout" jsonschema:"default=10s,description=Per-source fetch timeout"`
		MaxWorkers      int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,description=Maximum concurrent source fetches"`
		MaxItems        int           `yaml:"max_items" json:"max_items" jsonschema:"default=100,description=Maximum retained aggregated items"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for market analysis"`

	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Full-text extraction configuration"`
}

// Feed describes a single configured feed source
type Feed struct {
	ID       string `yaml:"id" json:"id" jsonschema:"required,description=Stable source identifier"`
	Name     string `yaml:"name" json:"name" jsonschema:"description=Human readable source name"`
	URL      string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
	Category string `yaml:"category" json:"category" jsonschema:"description=Source category (markets, personal, crypto, ...)"`
}

// CacheConfig holds TTL cache settings
type CacheConfig struct {
	Backend     string        `yaml:"backend" json:"backend" jsonschema:"default=sqlite,enum=sqlite,enum=redis,description=Backing key-value store"`
	RedisAddr   string        `yaml:"redis_addr" json:"redis_addr" jsonschema:"default=localhost:6379,description=Redis address when backend is redis"`
	SQLitePath  string        `yaml:"sqlite_path" json:"sqlite_path" jsonschema:"default=finscope-cache.db,description=SQLite file path when backend is sqlite"`
	FeedTTL     time.Duration `yaml:"feed_ttl" json:"feed_ttl" jsonschema:"default=15m,description=TTL for the aggregated feed snapshot"`
	AnalysisTTL time.Duration `yaml:"analysis_ttl" json:"analysis_ttl" jsonschema:"default=1h,description=TTL for generated analysis text"`
}

// LLMConfig holds LLM configuration for market analysis
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable LLM market analysis"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=500,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt override (optional)"`
}

// ExtractionConfig holds full-text extraction settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable full-text extraction for items without body"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Finscope/1.0,description=User agent for HTTP requests"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=100,description=Minimum text length to consider valid"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "sqlite"
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "finscope-cache.db"
	}
	if cfg.Cache.FeedTTL == 0 {
		cfg.Cache.FeedTTL = 15 * time.Minute
	}
	if cfg.Cache.AnalysisTTL == 0 {
		cfg.Cache.AnalysisTTL = time.Hour
	}

	if cfg.Schedule.RefreshInterval == 0 {
		cfg.Schedule.RefreshInterval = 30 * time.Minute
	}
	if cfg.Schedule.SourceTimeout == 0 {
		cfg.Schedule.SourceTimeout = 10 * time.Second
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 5
	}
	if cfg.Schedule.MaxItems == 0 {
		cfg.Schedule.MaxItems = 100
	}

	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 30 * time.Second
	}
	if cfg.Extraction.UserAgent == "" {
		cfg.Extraction.UserAgent = "Finscope/1.0"
	}
	if cfg.Extraction.MinTextLength == 0 {
		cfg.Extraction.MinTextLength = 100
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Cache.Backend != "sqlite" && cfg.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be sqlite or redis, got %q", cfg.Cache.Backend)
	}

	seen := make(map[string]struct{}, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		if f.ID == "" {
			return fmt.Errorf("feeds[%d].id is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feeds[%d].url is required", i)
		}
		if _, ok := seen[f.ID]; ok {
			return fmt.Errorf("duplicate feed id %q", f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	if cfg.LLM.Enabled {
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when llm is enabled")
		}
		if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
			return fmt.Errorf("llm.temperature must be between 0 and 2")
		}
	}

	if cfg.Extraction.Enabled {
		if cfg.Extraction.Timeout < time.Second {
			return fmt.Errorf("extraction timeout must be at least 1 second")
		}
		if cfg.Extraction.MinTextLength < 0 {
			return fmt.Errorf("extraction min_text_length must be non-negative")
		}
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetSources returns the configured feeds as immutable domain sources
func (c *Config) GetSources() []domain.FeedSource {
	sources := make([]domain.FeedSource, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		sources = append(sources, domain.FeedSource{ID: f.ID, Name: name, URL: f.URL, Category: f.Category})
	}
	return sources
}

// GetCacheConfig returns TTL cache configuration
func (c *Config) GetCacheConfig() CacheConfig {
	return c.Cache
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}

// GetExtractionConfig returns full-text extraction configuration
func (c *Config) GetExtractionConfig() ExtractionConfig {
	return c.Extraction
}
