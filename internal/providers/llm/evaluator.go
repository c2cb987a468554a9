package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
	"github.com/Alpha200/ha-ai-tasker/internal/service/relevance"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const evaluatorPrompt = `You decide which of the user's memories deserve a chat notification right now.
Only notify about items that are relevant at the current time, place or weather.
Never repeat a reminder the user already received in the recent conversation.
Reply with JSON only, no prose:
{"notifications":[{"entry_id":"<id or empty for calendar events>","reason":"upcoming|today|place|deadline|habit|weather|flagged|overdue|calendar","message":"<short message for the user>"}],
 "remember":[{"type":"fact|instructions","content":"...","relevance_date":"<ISO date or empty>"}]}
Return {"notifications":[],"remember":[]} when nothing is relevant.`

// Evaluator asks the model for a decision. Its output is validated against
// the visible entries; the dispatcher still applies the dedup gate and the
// outbound guard.
type Evaluator struct {
	ai     core.AIProvider
	budget *Budget
	loc    *time.Location
}

func NewEvaluator(ai core.AIProvider, budget *Budget, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{ai: ai, budget: budget, loc: loc}
}

type modelDecision struct {
	Notifications []struct {
		EntryID string `json:"entry_id"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"notifications"`
	Remember []struct {
		Type          string `json:"type"`
		Content       string `json:"content"`
		RelevanceDate string `json:"relevance_date"`
	} `json:"remember"`
}

func (e *Evaluator) Evaluate(ctx context.Context, in relevance.Input) (relevance.Decision, error) {
	if in.Trigger.Kind == core.TriggerChat {
		return relevance.Decision{}, nil
	}

	msgs := []core.Message{{Role: core.RoleSystem, Content: evaluatorPrompt}}
	if in.Conversation != "" {
		msgs = append(msgs, core.Message{Role: core.RoleUser, Content: in.Conversation})
	}
	msgs = append(msgs, core.Message{Role: core.RoleUser, Content: e.describe(in)})
	if e.budget != nil {
		msgs = e.budget.Fit(msgs)
	}

	reply, err := e.ai.Chat(ctx, msgs)
	if err != nil {
		return relevance.Decision{}, core.NewExternalServiceError("reasoning component", err)
	}

	var md modelDecision
	if err := decodeJSON(reply.Content, &md); err != nil {
		return relevance.Decision{}, core.NewExternalServiceError("reasoning component", err)
	}
	return e.validate(ctx, in, md), nil
}

func (e *Evaluator) describe(in relevance.Input) string {
	var sb strings.Builder
	now := in.Now.In(e.loc)
	fmt.Fprintf(&sb, "Current time: %s (%s)\n", now.Format(time.RFC3339), now.Weekday())
	fmt.Fprintf(&sb, "Trigger: %s", in.Trigger.Kind)
	if in.Trigger.Place != "" {
		verb := "entered"
		if in.Trigger.Left {
			verb = "left"
		}
		fmt.Fprintf(&sb, " (%s %s)", verb, in.Trigger.Place)
	}
	sb.WriteString("\n")
	if in.Location.Place != "" {
		fmt.Fprintf(&sb, "Location: %s\n", in.Location.Place)
	}
	if w := in.Weather; w != nil {
		fmt.Fprintf(&sb, "Weather: %s, %.0f°C, %.1fmm", w.Condition, w.TemperatureC, w.Precipitation)
		if w.Anomalous {
			sb.WriteString(" (unusual)")
		}
		sb.WriteString("\n")
	}
	if len(in.Calendar) > 0 {
		sb.WriteString("Calendar:\n")
		for _, ev := range in.Calendar {
			fmt.Fprintf(&sb, "- %s at %s\n", ev.Title, ev.Start.In(e.loc).Format("Mon 15:04"))
		}
	}

	sb.WriteString("Memories:\n")
	if len(in.Entries) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, v := range in.Entries {
		fmt.Fprintf(&sb, "- id=%s type=%s: %s", v.ID, v.Type, v.Content)
		for _, kv := range [][2]string{
			{"date", v.RelevanceDate}, {"deadline", v.Deadline}, {"place", v.Place},
			{"recurrence", v.Recurrence}, {"last_notified", v.LastNotified},
		} {
			if kv[1] != "" {
				fmt.Fprintf(&sb, " %s=%s", kv[0], kv[1])
			}
		}
		if v.Flagged {
			sb.WriteString(" flagged")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (e *Evaluator) validate(ctx context.Context, in relevance.Input, md modelDecision) relevance.Decision {
	logger := log.FromCtx(ctx)
	byID := make(map[string]core.VisibleEntry, len(in.Entries))
	for _, v := range in.Entries {
		byID[v.ID] = v
	}

	var d relevance.Decision
	for _, n := range md.Notifications {
		text := strings.TrimSpace(n.Message)
		if text == "" {
			continue
		}
		reason := parseReason(n.Reason)
		out := relevance.Notification{Reason: reason, Text: text}

		if n.EntryID != "" {
			v, ok := byID[n.EntryID]
			if !ok {
				logger.Warn().Str("entry_id", n.EntryID).Msg("model referenced an unknown entry")
				continue
			}
			out.EntryID = v.ID
			out.Signature = memory.VisibleSignature(v)
		} else if reason != relevance.ReasonCalendar {
			logger.Warn().Str("reason", n.Reason).Msg("model notification without entry")
			continue
		}
		d.Notifications = append(d.Notifications, out)
	}

	for _, r := range md.Remember {
		t := core.EntryType(r.Type)
		if t != core.EntryInstructions {
			t = core.EntryFact
		}
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		d.Creates = append(d.Creates, core.MemoryEntry{
			Type:          t,
			Content:       strings.TrimSpace(r.Content),
			RelevanceDate: r.RelevanceDate,
		})
	}
	return d
}

func parseReason(s string) relevance.Reason {
	switch r := relevance.Reason(strings.ToLower(strings.TrimSpace(s))); r {
	case relevance.ReasonUpcoming, relevance.ReasonToday, relevance.ReasonPlace,
		relevance.ReasonDeadline, relevance.ReasonHabit, relevance.ReasonWeather,
		relevance.ReasonFlagged, relevance.ReasonOverdue, relevance.ReasonCalendar:
		return r
	}
	return relevance.ReasonModel
}

// decodeJSON reads the first JSON object in s. Models like to wrap their
// answer in a markdown code fence.
func decodeJSON(s string, v any) error {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no json object in model reply")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}
