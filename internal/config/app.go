package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const (
	BackendSQLite = "sqlite"
	BackendMCP    = "mcp"
	BackendMemory = "memory"

	TransportNone     = "none"
	TransportMatrix   = "matrix"
	TransportTelegram = "telegram"

	EvaluatorRules = "rules"
	EvaluatorLLM   = "llm"

	ContinuityMemory  = "memory"
	ContinuityRolling = "rolling"
)

type AppConfig struct {
	RuntimePath string `env:"TASKER_RUNTIME_PATH" envDefault:".tasker"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"HA AI Tasker"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8200"`

	MemoryBackend string `env:"MEMORY_BACKEND" envDefault:"sqlite"`
	ChatTransport string `env:"CHAT_TRANSPORT" envDefault:"none"`
	Evaluator     string `env:"EVALUATOR" envDefault:"rules"`
	Continuity    string `env:"CONTINUITY" envDefault:"memory"`

	// Cron spec for internal timer triggers, e.g. "@hourly". Empty leaves
	// timer triggers to the external caller of /process.
	TimerSchedule string        `env:"TIMER_SCHEDULE"`
	RunTimeout    time.Duration `env:"RUN_TIMEOUT" envDefault:"2m"`
	Timezone      string        `env:"TASKER_TIMEZONE" envDefault:"Local"`

	BufferCapacity  int  `env:"CONVERSATION_BUFFER_SIZE" envDefault:"10"`
	ContextMessages int  `env:"CONVERSATION_CONTEXT_SIZE" envDefault:"5"`
	LogOutcomes     bool `env:"LOG_RUN_OUTCOMES" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := ParseAppConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func ParseAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c AppConfig) GetRuntimePath() string {
	return resolveRuntimePath(c.RuntimePath)
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.GetRuntimePath(), "tasker.db")
}

// Location returns the configured timezone, falling back to time.Local.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c AppConfig) IsChatEnabled() bool {
	return c.ChatTransport == TransportMatrix || c.ChatTransport == TransportTelegram
}
