package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

var _ core.CalendarProvider = (*Calendar)(nil)

// Calendar reads events from a tool on the misc MCP server.
type Calendar struct {
	caller Caller
	tool   string
}

func NewCalendar(caller Caller, tool string) *Calendar {
	return &Calendar{caller: caller, tool: tool}
}

func (c *Calendar) Upcoming(ctx context.Context, from, to time.Time) ([]core.CalendarEvent, error) {
	out, err := callText(ctx, c.caller, c.tool, map[string]any{
		"start": from.Format(time.RFC3339),
		"end":   to.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var raw []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Start   string `json:"start"`
		End     string `json:"end"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		var wrapped struct {
			Events json.RawMessage `json:"events"`
		}
		if err2 := json.Unmarshal([]byte(out), &wrapped); err2 != nil || len(wrapped.Events) == 0 {
			return nil, fmt.Errorf("decode calendar events: %w", err)
		}
		if err := json.Unmarshal(wrapped.Events, &raw); err != nil {
			return nil, fmt.Errorf("decode calendar events: %w", err)
		}
	}

	events := make([]core.CalendarEvent, 0, len(raw))
	for _, r := range raw {
		start := parseTime(r.Start)
		if start.IsZero() {
			continue
		}
		if start.Before(from) || start.After(to) {
			continue
		}
		title := r.Title
		if title == "" {
			title = r.Summary
		}
		events = append(events, core.CalendarEvent{Title: title, Start: start, End: parseTime(r.End)})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}
