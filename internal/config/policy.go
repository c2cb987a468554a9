package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

// PolicyConfig holds the memory lifecycle and relevance windows.
type PolicyConfig struct {
	EventGrace       time.Duration `env:"POLICY_EVENT_GRACE" envDefault:"4h"`
	InstructionTTL   time.Duration `env:"POLICY_INSTRUCTION_TTL" envDefault:"24h"`
	SystemTTL        time.Duration `env:"POLICY_SYSTEM_TTL" envDefault:"12h"`
	MaxSystemEntries int           `env:"POLICY_MAX_SYSTEM_ENTRIES" envDefault:"6"`
	RelevanceWindow  time.Duration `env:"POLICY_RELEVANCE_WINDOW" envDefault:"2h"`
	DedupWindow      time.Duration `env:"POLICY_DEDUP_WINDOW" envDefault:"2h"`
	DeadlineWindow   time.Duration `env:"POLICY_DEADLINE_WINDOW" envDefault:"24h"`
	HabitWindow      time.Duration `env:"POLICY_HABIT_WINDOW" envDefault:"1h"`
}

func NewPolicyConfig(ctx context.Context) *PolicyConfig {
	c := &PolicyConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Policy config")
	}
	return c
}

// DefaultPolicyConfig returns the defaults without reading the environment.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		EventGrace:       4 * time.Hour,
		InstructionTTL:   24 * time.Hour,
		SystemTTL:        12 * time.Hour,
		MaxSystemEntries: 6,
		RelevanceWindow:  2 * time.Hour,
		DedupWindow:      2 * time.Hour,
		DeadlineWindow:   24 * time.Hour,
		HabitWindow:      time.Hour,
	}
}
