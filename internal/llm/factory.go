package llm

import (
	"context"
	"fmt"

	"github.com/cognicore/diary/pkg/diary/config"
	"github.com/cognicore/diary/pkg/diary/internalerr"
)

// FromConfig builds the configured Generator, rate-limited when
// cfg.LLM.RequestsPerMinute is set. It returns internalerr.ErrNotConfigured
// when no credential or endpoint is configured.
func FromConfig(ctx context.Context, cfg config.Config) (Generator, error) {
	if !cfg.RemoteEnabled() {
		return nil, fmt.Errorf("llm provider %q: %w", cfg.LLM.Provider, internalerr.ErrNotConfigured)
	}

	var g Generator
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		gc, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		g = gc
	case config.ProviderOpenAI:
		g = &Client{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model}
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", internalerr.ErrInvalidConfig, cfg.LLM.Provider)
	}
	return NewLimited(g, cfg.LLM.RequestsPerMinute), nil
}

// ParamsFromConfig extracts the sampling settings.
func ParamsFromConfig(cfg config.LLM) Params {
	return Params{
		Temperature:     cfg.Temperature,
		TopK:            cfg.TopK,
		TopP:            cfg.TopP,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}
