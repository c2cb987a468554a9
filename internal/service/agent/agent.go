// Package agent answers chat messages with the reasoning component.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const (
	// ProfileFile in the runtime directory is added to the prompt when present.
	ProfileFile = "profile.md"

	maxProfileLen = 2000
)

const systemPrompt = `You are a personal assistant living in the user's chat room.
You know the user's stored memories listed below and answer their messages briefly.
If the user asks you to remember something, put it into "remember".
Reply with JSON only:
{"reply":"<answer for the user>","remember":[{"type":"fact|instructions","content":"...","relevance_date":"<ISO date, relative phrase or empty>","place":"<geofence name or empty>"}]}`

// Budget trims the prompt to the model's budget.
type Budget interface {
	Fit(msgs []core.Message) []core.Message
}

type Agent struct {
	ai          core.AIProvider
	budget      Budget
	runtimePath string
	loc         *time.Location
}

func NewAgent(ai core.AIProvider, budget Budget, runtimePath string, loc *time.Location) *Agent {
	if loc == nil {
		loc = time.Local
	}
	return &Agent{
		ai:          ai,
		budget:      budget,
		runtimePath: runtimePath,
		loc:         loc,
	}
}

type agentReply struct {
	Reply    string `json:"reply"`
	Remember []struct {
		Type          string `json:"type"`
		Content       string `json:"content"`
		RelevanceDate string `json:"relevance_date"`
		Place         string `json:"place"`
	} `json:"remember"`
}

func (a *Agent) Reply(ctx context.Context, req core.ChatRequest) (core.ChatReply, error) {
	logger := log.FromCtx(ctx)

	messages := a.buildSystemPrompt(req)
	if req.Conversation != "" {
		messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Conversation})
	}
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Message})
	if a.budget != nil {
		messages = a.budget.Fit(messages)
	}

	resp, err := a.ai.Chat(ctx, messages)
	if err != nil {
		return core.ChatReply{}, fmt.Errorf("ai chat error: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	parsed, ok := parseReply(content)
	if !ok {
		logger.Debug().Msg("model answered in plain text")
		return core.ChatReply{Text: content}, nil
	}

	out := core.ChatReply{Text: strings.TrimSpace(parsed.Reply)}
	for _, r := range parsed.Remember {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		out.Remember = append(out.Remember, core.MemoryEntry{
			Type:          core.EntryType(r.Type),
			Content:       strings.TrimSpace(r.Content),
			RelevanceDate: r.RelevanceDate,
			Place:         r.Place,
		})
	}
	return out, nil
}

// parseReply accepts a bare JSON object or one wrapped in a code fence.
func parseReply(content string) (agentReply, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return agentReply{}, false
	}
	var r agentReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
		return agentReply{}, false
	}
	if r.Reply == "" && len(r.Remember) == 0 {
		return agentReply{}, false
	}
	return r, true
}

func (a *Agent) buildSystemPrompt(req core.ChatRequest) []core.Message {
	messages := []core.Message{{Role: core.RoleSystem, Content: systemPrompt}}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(a.loc)
	messages = append(messages, core.Message{
		Role:    core.RoleSystem,
		Content: fmt.Sprintf("Current time: %s (%s)", now.Format(time.RFC3339), now.Weekday()),
	})

	if content := a.readProfile(); content != "" {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: "ABOUT THE USER:\n" + content})
	}

	if len(req.Entries) > 0 {
		var sb strings.Builder
		sb.WriteString("STORED MEMORIES:\n")
		for _, e := range req.Entries {
			fmt.Fprintf(&sb, "- [%s] %s", e.Type, e.Content)
			if e.RelevanceDate != "" {
				fmt.Fprintf(&sb, " (%s)", e.RelevanceDate)
			}
			if e.Place != "" {
				fmt.Fprintf(&sb, " @%s", e.Place)
			}
			sb.WriteString("\n")
		}
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: sb.String()})
	}
	return messages
}

func (a *Agent) readProfile() string {
	if a.runtimePath == "" {
		return ""
	}
	content, err := os.ReadFile(filepath.Join(a.runtimePath, ProfileFile))
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(content))
	if len(s) > maxProfileLen {
		s = s[:maxProfileLen]
	}
	return s
}
