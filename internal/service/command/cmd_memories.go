package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

const shortIDLen = 8

type MemoriesCommand struct {
	store     core.MemoryStore
	clock     func() time.Time
	formatter *ResponseFormatter
}

func NewMemoriesCommand(store core.MemoryStore, clock func() time.Time) *MemoriesCommand {
	return &MemoriesCommand{
		store:     store,
		clock:     clock,
		formatter: NewResponseFormatter(),
	}
}

func (c *MemoriesCommand) Name() string {
	return "memories"
}

func (c *MemoriesCommand) Description() string {
	return "List stored memories"
}

func (c *MemoriesCommand) Execute(ctx context.Context, _ string, _ []string) (string, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return "", core.NewExternalServiceError("memory store", err)
	}

	visible := core.NewSnapshot(entries).Visible()
	if len(visible) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Memories"),
			"Nothing stored yet.",
			c.formatter.Tip("add one with `/remember Water the plants | tomorrow 18:00`"),
		), nil
	}

	var instructions, facts []string
	for _, e := range visible {
		if e.Type == core.EntryInstructions {
			instructions = append(instructions, describeEntry(e))
			continue
		}
		facts = append(facts, describeEntry(e))
	}
	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("Memories (%d)", len(visible))),
		c.formatter.Section("Instructions", instructions),
		c.formatter.Section("Facts", facts),
	), nil
}

func describeEntry(e core.VisibleEntry) string {
	var meta []string
	if e.RelevanceDate != "" {
		meta = append(meta, e.RelevanceDate)
	}
	if e.Deadline != "" {
		meta = append(meta, "due "+e.Deadline)
	}
	if e.Place != "" {
		meta = append(meta, "at "+e.Place)
	}
	if e.Recurrence != "" {
		meta = append(meta, e.Recurrence)
	}
	if e.Flagged {
		meta = append(meta, "flagged")
	}

	line := fmt.Sprintf("`%s` %s", shortID(e.ID), e.Content)
	if len(meta) > 0 {
		line += " (" + strings.Join(meta, ", ") + ")"
	}
	return line
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
