package config

import (
	"context"

	"github.com/caarlos0/env/v11"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type WeatherConfig struct {
	Latitude  float64 `env:"WEATHER_LATITUDE"`
	Longitude float64 `env:"WEATHER_LONGITUDE"`
	BaseURL   string  `env:"WEATHER_BASE_URL" envDefault:"https://api.open-meteo.com"`
}

func NewWeatherConfig(ctx context.Context) *WeatherConfig {
	c := &WeatherConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Weather config")
	}
	return c
}

func (c WeatherConfig) Enabled() bool {
	return c.Latitude != 0 || c.Longitude != 0
}
