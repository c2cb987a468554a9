// Package dispatcher runs one trigger end to end: gather context, evaluate,
// apply memory mutations, send notifications and report the outcome.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
	"github.com/Alpha200/ha-ai-tasker/internal/service/relevance"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const (
	DefaultRoom = "default"

	serviceStore     = "memory store"
	serviceTransport = "chat transport"
	serviceReasoning = "reasoning component"
)

// LocationTracker is updated by geofence triggers and read by every run.
type LocationTracker interface {
	core.LocationProvider
	Update(place string, entered bool, at time.Time)
}

// CommandRouter handles slash commands typed into the chat room.
type CommandRouter interface {
	Execute(ctx context.Context, room, input string) (string, bool)
}

// Journal keeps a record of finished runs.
type Journal interface {
	Record(ctx context.Context, runID string, ev core.TriggerEvent, out core.RunOutcome, at time.Time) error
}

// Deps are the collaborators of a Dispatcher. Weather, Calendar, Responder,
// Commands, Sender and Journal are optional.
type Deps struct {
	Store     core.MemoryStore
	Buffer    *conversation.Buffer
	Evaluator relevance.Evaluator
	Location  LocationTracker

	Weather   core.WeatherProvider
	Calendar  core.CalendarProvider
	Responder core.Responder
	Commands  CommandRouter
	Sender    core.Sender
	Journal   Journal
}

type Dispatcher struct {
	cfg       *config.AppConfig
	policyCfg config.PolicyConfig
	policy    *memory.Policy
	deps      Deps
	locks     *keyedMutex
	cont      *continuity
	room      string
	now       func() time.Time

	senderMu sync.RWMutex
}

func New(cfg *config.AppConfig, policyCfg config.PolicyConfig, room string, deps Deps) *Dispatcher {
	if room == "" {
		room = DefaultRoom
	}
	return &Dispatcher{
		cfg:       cfg,
		policyCfg: policyCfg,
		policy:    memory.NewPolicy(policyCfg),
		deps:      deps,
		locks:     newKeyedMutex(),
		cont:      newContinuity(cfg.Continuity),
		room:      room,
		now:       time.Now,
	}
}

// SetSender installs the chat transport once it is connected.
func (d *Dispatcher) SetSender(s core.Sender) {
	d.senderMu.Lock()
	defer d.senderMu.Unlock()
	d.deps.Sender = s
}

// SetCommands installs the slash command router. Commands need the
// dispatcher themselves, so they are wired after construction.
func (d *Dispatcher) SetCommands(r CommandRouter) {
	d.deps.Commands = r
}

func (d *Dispatcher) sender() core.Sender {
	d.senderMu.RLock()
	defer d.senderMu.RUnlock()
	return d.deps.Sender
}

func (d *Dispatcher) Policy() *memory.Policy {
	return d.policy
}

// Dispatch runs ev to completion. It never returns an error: failures are
// reported as an error outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev core.TriggerEvent) (out core.RunOutcome) {
	runID := uuid.NewString()
	ctx = log.FromCtx(ctx).With().
		Str("run_id", runID).
		Str("trigger", string(ev.Kind)).
		Logger().WithContext(ctx)
	logger := log.FromCtx(ctx)

	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = d.now()
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.RunTimeout)
	defer cancel()

	room := ev.Room
	if room == "" {
		room = d.room
	}
	unlock, err := d.locks.Lock(ctx, room)
	if err != nil {
		return errorOutcome(fmt.Errorf("waiting for previous run: %w", err))
	}
	defer unlock()

	machine := relevance.NewMachine(runID)
	defer machine.Finish(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("run panicked")
			out = errorOutcome(fmt.Errorf("internal error: %v", r))
		}
	}()

	out = d.run(ctx, machine, ev)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && out.Outcome != core.OutcomeSuccess {
		out = errorOutcome(fmt.Errorf("run timed out after %s", d.cfg.RunTimeout))
	}

	if d.cfg.LogOutcomes {
		logger.Info().
			Str("outcome", string(out.Outcome)).
			Int("messages", len(out.Messages)).
			Str("detail", out.Detail).
			Msg("run finished")
	}
	if d.deps.Journal != nil {
		if err := d.deps.Journal.Record(context.WithoutCancel(ctx), runID, ev, out, d.now()); err != nil {
			logger.Warn().Err(err).Msg("failed to journal run")
		}
	}
	return out
}

type gathered struct {
	snapshot core.Snapshot
	location core.Location
	weather  *core.Weather
	calendar []core.CalendarEvent
}

func (d *Dispatcher) run(ctx context.Context, m *relevance.Machine, ev core.TriggerEvent) core.RunOutcome {
	now := ev.ReceivedAt

	if ev.Kind == core.TriggerGeofence && ev.Place != "" && d.deps.Location != nil {
		d.deps.Location.Update(ev.Place, !ev.Left, now)
	}

	if err := m.To(ctx, relevance.StateGathering); err != nil {
		return errorOutcome(err)
	}
	g, err := d.gather(ctx, ev, now)
	if err != nil {
		return errorOutcome(err)
	}

	if ev.Kind == core.TriggerChat {
		return d.chat(ctx, m, ev, g)
	}

	// Timer runs do full housekeeping before deciding anything. A store
	// failure here skips the rest of the run.
	current := g.snapshot.All()
	if ev.Kind == core.TriggerTimer {
		plan := d.policy.Plan(current, now, memory.Full)
		if err := memory.Apply(ctx, d.deps.Store, plan.Mutations); err != nil {
			return errorOutcome(err)
		}
		if !plan.Empty() {
			log.FromCtx(ctx).Info().
				Int("mutations", len(plan.Mutations)).
				Int("deleted", plan.Deletes()).
				Msg("housekeeping applied")
		}
		current = plan.Result
	}
	snap := core.NewSnapshot(current)

	if err := m.To(ctx, relevance.StateEvaluating); err != nil {
		return errorOutcome(err)
	}
	in := relevance.Input{
		Trigger:      ev,
		Now:          now,
		Location:     g.location,
		Weather:      g.weather,
		Calendar:     g.calendar,
		Entries:      snap.Visible(),
		Sent:         relevance.SentFromNotes(snap.Notes()),
		Continuity:   d.cont.Previous(snap),
		Conversation: d.conversation(),
	}
	if d.deps.Buffer != nil {
		in.History = d.deps.Buffer
	}

	decision, err := d.deps.Evaluator.Evaluate(ctx, in)
	if err != nil {
		return errorOutcome(core.NewExternalServiceError(serviceReasoning, err))
	}
	decision = relevance.Gate(in, decision, d.policyCfg.DedupWindow)
	if decision.Empty() {
		return core.RunOutcome{Outcome: core.OutcomeNoAction, Detail: "no relevant notifications"}
	}

	if err := m.To(ctx, relevance.StateActing); err != nil {
		return errorOutcome(err)
	}
	return d.act(ctx, ev, snap, decision, now)
}

// gather collects the run context. The memory snapshot and location are
// required, weather and calendar are best effort.
func (d *Dispatcher) gather(ctx context.Context, ev core.TriggerEvent, now time.Time) (gathered, error) {
	var g gathered
	logger := log.FromCtx(ctx)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		entries, err := d.deps.Store.List(egCtx)
		if err != nil {
			return core.NewExternalServiceError(serviceStore, err)
		}
		g.snapshot = core.NewSnapshot(entries)
		return nil
	})
	if d.deps.Location != nil {
		eg.Go(func() error {
			loc, err := d.deps.Location.Current(egCtx)
			if err != nil {
				return fmt.Errorf("location: %w", err)
			}
			g.location = loc
			return nil
		})
	}

	// Chat runs answer from memory and conversation only.
	if ev.Kind != core.TriggerChat {
		if d.deps.Weather != nil {
			eg.Go(func() error {
				w, err := d.deps.Weather.Current(egCtx)
				if err != nil {
					logger.Warn().Err(err).Msg("weather unavailable, continuing without it")
					return nil
				}
				g.weather = w
				return nil
			})
		}
		if d.deps.Calendar != nil {
			eg.Go(func() error {
				events, err := d.deps.Calendar.Upcoming(egCtx, now, now.Add(24*time.Hour))
				if err != nil {
					logger.Warn().Err(err).Msg("calendar unavailable, continuing without it")
					return nil
				}
				g.calendar = events
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return gathered{}, err
	}
	return g, nil
}

// act sends the notifications and records what was sent.
func (d *Dispatcher) act(ctx context.Context, ev core.TriggerEvent, snap core.Snapshot, decision relevance.Decision, now time.Time) core.RunOutcome {
	logger := log.FromCtx(ctx)
	notes := snap.Notes()

	for _, n := range decision.Notifications {
		if err := checkOutbound(n.Text, notes); err != nil {
			logger.Error().Err(err).Str("reason", string(n.Reason)).Msg("outbound message refused")
			return errorOutcome(err)
		}
	}

	var (
		sent    []relevance.Notification
		sendErr error
	)
	for _, n := range decision.Notifications {
		if err := d.send(ctx, n.Text); err != nil {
			sendErr = core.NewExternalServiceError(serviceTransport, err)
			break
		}
		sent = append(sent, n)
	}

	out := core.RunOutcome{Outcome: core.OutcomeSuccess}
	for _, n := range sent {
		out.Messages = append(out.Messages, n.Text)
	}
	out.Detail = strings.Join(out.Messages, "\n")

	if len(sent) == 0 && len(decision.Creates) == 0 {
		if sendErr != nil {
			return errorOutcome(sendErr)
		}
		return core.RunOutcome{Outcome: core.OutcomeNoAction, Detail: "no relevant notifications"}
	}

	if err := d.record(ctx, ev, snap, sent, decision.Creates, out, now); err != nil {
		logger.Error().Err(err).Msg("failed to record sent notifications")
		if sendErr == nil {
			sendErr = err
		}
	}

	if sendErr != nil {
		out.Outcome = core.OutcomeError
		out.Detail = sendErr.Error()
	}
	if len(sent) == 0 && sendErr == nil {
		out.Outcome = core.OutcomeNoAction
		out.Detail = "memory updated, nothing to notify"
	}
	return out
}

// record writes the system notes, LastNotified stamps, proposed entries and
// continuity for one run in a single batch.
func (d *Dispatcher) record(
	ctx context.Context,
	ev core.TriggerEvent,
	snap core.Snapshot,
	sent []relevance.Notification,
	creates []core.MemoryEntry,
	out core.RunOutcome,
	now time.Time,
) error {
	stamp := now.Format(time.RFC3339)
	notified := make(map[string]bool, len(sent))
	for _, n := range sent {
		if n.EntryID != "" {
			notified[n.EntryID] = true
		}
	}

	var muts []core.Mutation
	current := snap.All()
	for i, e := range current {
		if notified[e.ID] {
			current[i].LastNotified = stamp
			current[i].ModifiedAt = now
			muts = append(muts, core.Mutation{Kind: core.MutationUpdate, Entry: current[i], Reason: "notified"})
		}
	}

	newEntries := make([]core.MemoryEntry, 0, len(creates)+2)
	newEntries = append(newEntries, creates...)

	if len(sent) > 0 {
		note, replaced := relevance.RecordSent(current, sent, now, d.policyCfg.DedupWindow)
		drop := make(map[string]bool, len(replaced))
		for _, e := range replaced {
			drop[e.ID] = true
			muts = append(muts, core.Mutation{Kind: core.MutationDelete, Entry: e, Reason: "sent log"})
		}
		kept := current[:0]
		for _, e := range current {
			if drop[e.ID] {
				continue
			}
			if note.ID != "" && e.ID == note.ID {
				e = note
			}
			kept = append(kept, e)
		}
		current = kept
		if note.ID != "" {
			muts = append(muts, core.Mutation{Kind: core.MutationUpdate, Entry: note, Reason: "sent log"})
		} else {
			newEntries = append(newEntries, note)
		}

		update, create := d.cont.Record(current, ev, out, now)
		if update != nil {
			for i := range current {
				if current[i].ID == update.Entry.ID {
					current[i] = update.Entry
				}
			}
			muts = append(muts, *update)
		}
		if create != nil {
			newEntries = append(newEntries, *create)
		}
	}

	plan := d.policy.PlanCreates(current, newEntries, now)
	muts = append(muts, plan.Mutations...)
	return memory.Apply(ctx, d.deps.Store, muts)
}

func (d *Dispatcher) send(ctx context.Context, text string) error {
	s := d.sender()
	if s == nil {
		return nil
	}
	return s.Send(ctx, text)
}

func (d *Dispatcher) conversation() string {
	if d.deps.Buffer == nil {
		return ""
	}
	n := d.cfg.ContextMessages
	if n <= 0 {
		n = conversation.DefaultContext
	}
	return d.deps.Buffer.Context(n, true)
}

func errorOutcome(err error) core.RunOutcome {
	return core.RunOutcome{Outcome: core.OutcomeError, Detail: err.Error()}
}
