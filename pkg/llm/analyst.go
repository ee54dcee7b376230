// Package llm generates short market analysis texts via an OpenAI-compatible
// API. The text is opaque to the rest of the system: it is produced on
// demand and parked in the TTL cache under a per-topic key.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/finscope/finscope/pkg/config"
)

//go:generate moq -out mocks/cache.go -pkg mocks -skip-ensure -fmt goimports . Cache

// Cache is the TTL cache consumed by the analyst
type Cache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Analyst produces cached market analysis texts
type Analyst struct {
	client    *openai.Client
	config    config.LLMConfig
	cache     Cache
	ttl       time.Duration
	systemMsg string
}

// Analysis is a generated analysis with its provenance
type Analysis struct {
	Topic       string    `json:"topic"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

const defaultSystemPrompt = `You are a personal-finance analyst. Given a topic and recent headlines,
write a short plain-language market analysis (3-5 sentences) for a general audience.
Be factual and calm, avoid hype and avoid giving individual investment advice.`

// NewAnalyst creates an analyst. The cache is required; ttl bounds how long
// a generated analysis is served before regeneration.
func NewAnalyst(cfg config.LLMConfig, cache Cache, ttl time.Duration) *Analyst {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Analyst{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		cache:     cache,
		ttl:       ttl,
		systemMsg: systemMsg,
	}
}

// MarketAnalysis returns the analysis for a topic, generating it through the
// LLM on a cache miss. Headlines give the model current context and are
// ignored when the cached copy is still fresh.
func (a *Analyst) MarketAnalysis(ctx context.Context, topic string, headlines []string) (Analysis, error) {
	key := analysisKey(topic)

	var cached Analysis
	if a.cache.Get(ctx, key, &cached) {
		lgr.Printf("[DEBUG] analysis cache hit for %q", topic)
		return cached, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: float32(a.config.Temperature),
		MaxTokens:   a.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemMsg},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(topic, headlines)},
		},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("llm request for %q: %w", topic, err)
	}
	if len(resp.Choices) == 0 {
		return Analysis{}, fmt.Errorf("empty llm response for %q", topic)
	}

	analysis := Analysis{
		Topic:       topic,
		Text:        strings.TrimSpace(resp.Choices[0].Message.Content),
		GeneratedAt: time.Now().UTC(),
	}
	a.cache.Set(ctx, key, analysis, a.ttl)
	lgr.Printf("[INFO] generated analysis for %q (%d chars)", topic, len(analysis.Text))

	return analysis, nil
}

// Invalidate drops the cached analysis for a topic so the next request
// regenerates it
func (a *Analyst) Invalidate(ctx context.Context, topic string) {
	a.cache.Delete(ctx, analysisKey(topic))
}

func analysisKey(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	topic = strings.ReplaceAll(topic, " ", "-")
	return "analysis:" + topic
}

func buildPrompt(topic string, headlines []string) string {
	var sb strings.Builder
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	sb.WriteString("\n")

	if len(headlines) > 0 {
		sb.WriteString("\nRecent headlines:\n")
		for _, h := range headlines {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nWrite the analysis now.")
	return sb.String()
}
