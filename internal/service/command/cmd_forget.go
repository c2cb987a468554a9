package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

type ForgetCommand struct {
	store     core.MemoryStore
	formatter *ResponseFormatter
}

func NewForgetCommand(store core.MemoryStore) *ForgetCommand {
	return &ForgetCommand{
		store:     store,
		formatter: NewResponseFormatter(),
	}
}

func (c *ForgetCommand) Name() string {
	return "forget"
}

func (c *ForgetCommand) Description() string {
	return "Delete a memory by id"
}

func (c *ForgetCommand) Execute(ctx context.Context, _ string, args []string) (string, error) {
	if len(args) != 1 {
		return c.formatter.Combine(
			c.formatter.Usage("/forget <id>"),
			c.formatter.Tip("ids are shown by /memories"),
		), nil
	}
	prefix := strings.ToLower(args[0])

	entries, err := c.store.List(ctx)
	if err != nil {
		return "", core.NewExternalServiceError("memory store", err)
	}

	// System notes are invisible, so they cannot be addressed either.
	var matches []core.VisibleEntry
	for _, e := range core.NewSnapshot(entries).Visible() {
		if strings.HasPrefix(strings.ToLower(e.ID), prefix) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return "", &core.ValidationError{Field: "id", Reason: fmt.Sprintf("no memory matches %q", args[0])}
	case 1:
	default:
		return "", &core.ValidationError{Field: "id", Reason: fmt.Sprintf("%q matches %d memories", args[0], len(matches))}
	}

	if err := c.store.Delete(ctx, matches[0].ID); err != nil {
		return "", core.NewExternalServiceError("memory store", err)
	}
	return c.formatter.Success(fmt.Sprintf("Forgot: %s", matches[0].Content)), nil
}
