package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type options struct {
	timeout    time.Duration
	maxRetries int
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{timeout: 120 * time.Second, maxRetries: 2}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	opts := []Option{WithTimeout(cfg.Timeout), WithMaxRetries(cfg.MaxRetries)}

	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL != "" {
			return NewCustomOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, opts...), nil
		}
		return NewOpenAI(cfg.APIKey, cfg.Model, opts...), nil
	case "anthropic":
		return NewAnthropic(cfg.APIKey, cfg.Model, opts...), nil
	case "openrouter":
		return NewOpenRouter(cfg.APIKey, cfg.Model, opts...), nil
	case "ollama":
		return NewOllama(cfg.BaseURL, cfg.APIKey, cfg.Model, opts...), nil
	case "custom":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("custom llm provider needs LLM_BASE_URL")
		}
		return NewCustomOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
