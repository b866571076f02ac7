package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// DefaultModel is the model used with provider when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

// Settings describes a provider together with the transport policies around it.
type Settings struct {
	Provider          string
	Credentials       ProviderConfig
	RequestsPerMinute int
	MaxRetries        int
	RetryBackoff      time.Duration
	Breaker           BreakerConfig
}

// NewProvider builds the bare client for name.
func NewProvider(ctx context.Context, name string, cfg ProviderConfig) (Client, error) {
	switch strings.ToLower(name) {
	case "", ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderAnthropic:
		return NewAnthropic(cfg)
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// New builds the configured provider wrapped, from the inside out, in the
// pacer, the 429 retry loop and the circuit breaker.
func New(ctx context.Context, s Settings, logger *slog.Logger) (Client, error) {
	client, err := NewProvider(ctx, s.Provider, s.Credentials)
	if err != nil {
		return nil, err
	}

	client = WithPacer(client, s.RequestsPerMinute)
	client = WithRetry(client, s.MaxRetries, s.RetryBackoff, logger)
	client = WithBreaker(client, s.Breaker, logger)

	return client, nil
}
