package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	// Model may be a friendly alias or a provider model ID.
	Model string
	// BaseURL overrides the endpoint for OpenAI-compatible servers.
	BaseURL    string
	Generation Generation
	Retry      RetryConfig
	// Timeout bounds each provider call. Zero means none.
	Timeout time.Duration
}

// DefaultConfig returns a Gemini config with the tutoring defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderGemini,
		Model:      "gemini-flash",
		Generation: DefaultGeneration(),
		Retry:      DefaultRetry(),
		Timeout:    2 * time.Minute,
	}
}

// DefaultModel returns the model alias used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-haiku"
	case ProviderMock:
		return "mock"
	}
	return "gemini-flash"
}

// Validate checks that a credential is present for real providers.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider (set --llm-key, TUTOR_LLM_KEY or GEMINI_API_KEY)", c.Provider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown model provider: %q", c.Provider)
	}
	return nil
}

// New builds the provider named in cfg and wraps it in a Gateway.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.Generation == (Generation{}) {
		cfg.Generation = DefaultGeneration()
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, cfg)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg)
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(cfg)
	case ProviderMock:
		m := NewMockProvider()
		m.Default = MockDefaultReply
		p = m
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	var inner Provider = p
	if cfg.Timeout > 0 {
		inner = withTimeout(p, cfg.Timeout)
	}
	return NewGateway(inner, cfg.Retry), nil
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}

type timeoutProvider struct {
	Provider
	timeout time.Duration
}

func withTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{Provider: p, timeout: d}
}

func (t *timeoutProvider) Complete(ctx context.Context, prompt string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Complete(ctx, prompt)
}
