package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openai"`
	Model    string `env:"LLM_MODEL" envDefault:"gpt-5-mini"`
	APIKey   string `env:"OPENAI_API_KEY"`
	// Used by the ollama and custom providers.
	BaseURL string `env:"LLM_BASE_URL"`

	Timeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	MaxRetries     int           `env:"LLM_MAX_RETRIES" envDefault:"2"`
	PromptTokenCap int           `env:"LLM_PROMPT_TOKEN_CAP" envDefault:"6000"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}

// Enabled reports whether enough is configured to reach a model.
func (c LLMConfig) Enabled() bool {
	switch c.Provider {
	case "ollama", "custom":
		return c.BaseURL != ""
	default:
		return c.APIKey != ""
	}
}
