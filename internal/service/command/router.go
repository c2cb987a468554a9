package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type Router struct {
	commands  map[string]core.Command
	formatter *ResponseFormatter
}

func New(commands []core.Command) *Router {
	c := &Router{
		commands:  make(map[string]core.Command),
		formatter: NewResponseFormatter(),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	return c
}

// Register adds cmd, replacing a command with the same name.
func (c *Router) Register(cmd core.Command) {
	c.commands[cmd.Name()] = cmd
}

// Execute runs input when it is a slash command. The bool reports whether
// input was handled.
func (c *Router) Execute(ctx context.Context, room, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	// Telegram appends the bot name in groups: /help@tasker_bot
	name, _, _ = strings.Cut(name, "@")
	args := parts[1:]

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s", name), true
	}

	result, err := cmd.Execute(ctx, room, args)
	if err != nil {
		var ext *core.ExternalServiceError
		if errors.As(err, &ext) {
			log.FromCtx(ctx).Error().Err(err).Str("command", name).Msg("command failed")
			return core.ApologyMessage, true
		}
		return c.formatter.Error(name, err), true
	}
	return result, true
}

// ListCommands returns the commands sorted by name.
func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}
