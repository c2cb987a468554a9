package dispatcher

import (
	"context"
	"strings"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
	"github.com/Alpha200/ha-ai-tasker/internal/service/relevance"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const noResponse = "No response generated"

// chat answers a direct message. Slash commands win over the responder.
// Without a responder the reply is the summary digest.
func (d *Dispatcher) chat(ctx context.Context, m *relevance.Machine, ev core.TriggerEvent, g gathered) core.RunOutcome {
	logger := log.FromCtx(ctx)
	now := ev.ReceivedAt
	text := strings.TrimSpace(ev.Payload)

	plan := d.policy.Plan(g.snapshot.All(), now, memory.Passive)
	if err := memory.Apply(ctx, d.deps.Store, plan.Mutations); err != nil {
		return errorOutcome(err)
	}
	snap := core.NewSnapshot(plan.Result)

	if err := m.To(ctx, relevance.StateEvaluating); err != nil {
		return errorOutcome(err)
	}

	room := ev.Room
	if room == "" {
		room = d.room
	}

	var (
		reply   string
		creates []core.MemoryEntry
		handled bool
	)
	if d.deps.Commands != nil {
		reply, handled = d.deps.Commands.Execute(ctx, room, text)
	}
	if handled {
		logger.Debug().Str("command", strings.Fields(text)[0]).Msg("chat command executed")
	} else if d.deps.Responder != nil {
		res, err := d.deps.Responder.Reply(ctx, core.ChatRequest{
			Message:      text,
			Sender:       ev.SenderID,
			Conversation: d.conversation(),
			Entries:      snap.Visible(),
			Now:          now,
		})
		if err != nil {
			return errorOutcome(core.NewExternalServiceError(serviceReasoning, err))
		}
		reply, creates = res.Text, res.Remember
	} else {
		reply = digest(snap.Visible(), nil, nil, now, LangEnglish)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return core.RunOutcome{Outcome: core.OutcomeNoAction, Detail: noResponse}
	}

	if err := m.To(ctx, relevance.StateActing); err != nil {
		return errorOutcome(err)
	}
	if err := checkOutbound(reply, snap.Notes()); err != nil {
		logger.Error().Err(err).Msg("chat reply refused")
		return errorOutcome(err)
	}
	if err := d.send(ctx, reply); err != nil {
		return errorOutcome(core.NewExternalServiceError(serviceTransport, err))
	}

	out := core.RunOutcome{Outcome: core.OutcomeSuccess, Detail: reply, Messages: []string{reply}}

	if len(creates) == 0 {
		return out
	}

	plan = d.policy.PlanCreates(plan.Result, sanitizeCreates(creates), now)
	if err := memory.Apply(ctx, d.deps.Store, plan.Mutations); err != nil {
		out.Outcome = core.OutcomeError
		out.Detail = err.Error()
		return out
	}
	logger.Info().Int("entries", len(creates)).Msg("remembered from chat")
	return out
}

// sanitizeCreates keeps proposals the user is allowed to own. The responder
// cannot write system notes.
func sanitizeCreates(in []core.MemoryEntry) []core.MemoryEntry {
	out := make([]core.MemoryEntry, 0, len(in))
	for _, e := range in {
		e.ID = ""
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		if !e.Type.Valid() || e.IsSystem() {
			e.Type = core.EntryFact
		}
		out = append(out, e)
	}
	return out
}
