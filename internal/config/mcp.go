package config

import (
	"context"

	"github.com/caarlos0/env/v11"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

// MCPConfig points at the MCP servers backing the remote memory store and the
// miscellaneous context tools (calendar).
type MCPConfig struct {
	MemoryURL string `env:"MCP_SERVER_URL_MEMORY" envDefault:"http://localhost:8300/sse"`
	MiscURL   string `env:"MCP_SERVER_URL_MISC"`

	CreateTool   string `env:"MCP_MEMORY_CREATE_TOOL" envDefault:"create_memory"`
	ListTool     string `env:"MCP_MEMORY_LIST_TOOL" envDefault:"get_all_memories"`
	UpdateTool   string `env:"MCP_MEMORY_UPDATE_TOOL" envDefault:"update_memory"`
	DeleteTool   string `env:"MCP_MEMORY_DELETE_TOOL" envDefault:"delete_memory"`
	CalendarTool string `env:"MCP_CALENDAR_TOOL" envDefault:"get_calendar_events"`
}

func NewMCPConfig(ctx context.Context) *MCPConfig {
	c := &MCPConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse MCP config")
	}
	return c
}
