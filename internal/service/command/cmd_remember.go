package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
)

// RememberCommand stores a user entry. Arguments after "|" are the date,
// "@place" scopes it to a geofence and "!" flags it.
type RememberCommand struct {
	store     core.MemoryStore
	policy    *memory.Policy
	clock     func() time.Time
	formatter *ResponseFormatter
}

func NewRememberCommand(store core.MemoryStore, policy *memory.Policy, clock func() time.Time) *RememberCommand {
	return &RememberCommand{
		store:     store,
		policy:    policy,
		clock:     clock,
		formatter: NewResponseFormatter(),
	}
}

func (c *RememberCommand) Name() string {
	return "remember"
}

func (c *RememberCommand) Description() string {
	return "Store a reminder or instruction"
}

func (c *RememberCommand) usage() string {
	return c.formatter.Combine(
		c.formatter.Usage("/remember [instructions] <text> [@place] [!] [| date]"),
		c.formatter.Examples([]string{
			"/remember Dentist appointment | tomorrow 15:00",
			"/remember Buy milk @supermarket",
			"/remember instructions Answer in German",
		}),
	)
}

func (c *RememberCommand) Execute(ctx context.Context, _ string, args []string) (string, error) {
	if len(args) == 0 {
		return c.usage(), nil
	}

	entry, err := parseRemember(args)
	if err != nil {
		return "", err
	}

	now := c.clock()
	if entry.RelevanceDate != "" {
		if _, ok := memory.NormalizeDate(entry.RelevanceDate, now); !ok {
			return "", &core.ValidationError{Field: "date", Reason: fmt.Sprintf("cannot understand %q", entry.RelevanceDate)}
		}
	}

	current, err := c.store.List(ctx)
	if err != nil {
		return "", core.NewExternalServiceError("memory store", err)
	}

	plan := c.policy.PlanCreates(current, []core.MemoryEntry{entry}, now)
	if err := memory.Apply(ctx, c.store, plan.Mutations); err != nil {
		return "", err
	}

	stored := entry
	for _, e := range plan.Result {
		if memory.EntrySignature(e) == memory.EntrySignature(entry) && e.Type == entry.Type {
			stored = e
		}
	}

	lines := []string{c.formatter.Success("Remembered")}
	lines = append(lines, c.formatter.Label("Content", stored.Content))
	if stored.RelevanceDate != "" {
		lines = append(lines, c.formatter.Label("When", stored.RelevanceDate))
	}
	if stored.Place != "" {
		lines = append(lines, c.formatter.Label("Place", stored.Place))
	}
	return c.formatter.Combine(lines...), nil
}

func parseRemember(args []string) (core.MemoryEntry, error) {
	entry := core.MemoryEntry{Type: core.EntryFact}

	if t := core.EntryType(strings.ToLower(args[0])); t == core.EntryInstructions {
		entry.Type = t
		args = args[1:]
	}

	text, date, _ := strings.Cut(strings.Join(args, " "), "|")
	entry.RelevanceDate = strings.TrimSpace(date)

	var words []string
	for _, w := range strings.Fields(text) {
		switch {
		case w == "!":
			entry.Flagged = true
		case strings.HasPrefix(w, "@") && len(w) > 1:
			entry.Place = w[1:]
		default:
			words = append(words, w)
		}
	}
	entry.Content = strings.Join(words, " ")
	if entry.Content == "" {
		return core.MemoryEntry{}, &core.ValidationError{Field: "content", Reason: "nothing to remember"}
	}
	return entry, nil
}
