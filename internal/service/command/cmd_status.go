package command

import (
	"context"
	"fmt"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

type StatusCommand struct {
	cfg       *config.AppConfig
	store     core.MemoryStore
	location  core.LocationProvider
	formatter *ResponseFormatter
}

func NewStatusCommand(cfg *config.AppConfig, store core.MemoryStore, location core.LocationProvider) *StatusCommand {
	return &StatusCommand{
		cfg:       cfg,
		store:     store,
		location:  location,
		formatter: NewResponseFormatter(),
	}
}

func (c *StatusCommand) Name() string {
	return "status"
}

func (c *StatusCommand) Description() string {
	return "Show service status"
}

func (c *StatusCommand) Execute(ctx context.Context, _ string, _ []string) (string, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return "", core.NewExternalServiceError("memory store", err)
	}
	snap := core.NewSnapshot(entries)

	place := "unknown"
	if c.location != nil {
		if loc, err := c.location.Current(ctx); err == nil && loc.Place != "" {
			place = loc.Place
			if !loc.Entered {
				place = "left " + loc.Place
			}
		}
	}

	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("%s %s", core.ServiceName, core.ServiceVersion)),
		c.formatter.Label("Memory backend", c.cfg.MemoryBackend),
		c.formatter.Label("Evaluator", c.cfg.Evaluator),
		c.formatter.Label("Memories", fmt.Sprintf("%d", len(snap.Visible()))),
		c.formatter.Label("System notes", fmt.Sprintf("%d", len(snap.Notes()))),
		c.formatter.Label("Location", place),
	), nil
}
