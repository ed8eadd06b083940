package llm

import (
	"fmt"
	"time"
)

// Provider identifies an LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// FactoryConfig holds resolved provider settings from the application config.
type FactoryConfig struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewClient builds a Client for the configured provider. Empty model and
// base URL fall back to provider defaults.
func NewClient(cfg FactoryConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		ac := DefaultAnthropicConfig(cfg.APIKey)
		if cfg.Model != "" {
			ac.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			ac.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			ac.Timeout = cfg.Timeout
		}
		return NewAnthropicClient(ac), nil

	case ProviderOpenAI:
		oc := DefaultOpenAIConfig(cfg.APIKey)
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			oc.Timeout = cfg.Timeout
		}
		return NewOpenAIClient(oc), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
