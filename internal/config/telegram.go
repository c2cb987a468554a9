package config

import (
	"context"

	"github.com/caarlos0/env/v11"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type TelegramConfig struct {
	Token   string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	OwnerID int64  `env:"TELEGRAM_OWNER_ID,required"`
	// Chat the notifications go to; defaults to the owner's private chat.
	ChatID         int64  `env:"TELEGRAM_CHAT_ID"`
	SystemUsername string `env:"TELEGRAM_SYSTEM_USERNAME"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	if c.ChatID == 0 {
		c.ChatID = c.OwnerID
	}
	return c
}
