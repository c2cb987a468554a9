package config

import (
	"context"

	"github.com/caarlos0/env/v11"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type MatrixConfig struct {
	Homeserver string `env:"MATRIX_HOMESERVER,required,notEmpty"`
	UserID     string `env:"MATRIX_USER_ID,required,notEmpty"`
	Password   string `env:"MATRIX_PASSWORD,required,notEmpty"`
	RoomID     string `env:"MATRIX_ROOM_ID,required,notEmpty"`
	// Messages from this account are shown as "system" in the conversation context.
	SystemUsername string `env:"MATRIX_SYSTEM_USERNAME"`
}

func NewMatrixConfig(ctx context.Context) *MatrixConfig {
	c := &MatrixConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Matrix config")
	}
	return c
}
