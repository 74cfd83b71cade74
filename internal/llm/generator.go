// Package llm wraps the text generation backends used for record enrichment.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Generator produces a completion for a single prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted by New
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Config selects and tunes a generation backend
type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration

	// RequestsPerSecond <= 0 disables rate limiting
	RequestsPerSecond float64
	Burst             int

	// BreakerFailures is the number of consecutive transient failures that opens the
	// circuit. 0 disables the breaker.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Clients carries prebuilt SDK clients for providers that need one
type Clients struct {
	Bedrock ConverseAPI
}

// New builds the configured backend and wraps it with the rate limiter and the circuit
// breaker.
func New(cfg Config, clients Clients) (Generator, error) {
	var g Generator

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider requires a base url")
		}
		g = NewOpenAIClient(cfg)
	case ProviderBedrock:
		if clients.Bedrock == nil {
			return nil, fmt.Errorf("bedrock provider requires a runtime client")
		}
		g = NewBedrockClient(clients.Bedrock, cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}

	if cfg.RequestsPerSecond > 0 {
		g = NewRateLimited(g, cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.BreakerFailures > 0 {
		g = NewCircuitBreaker(g, cfg.Provider, uint32(cfg.BreakerFailures), cfg.BreakerCooldown)
	}
	return g, nil
}
