// Package scheduler fires timer triggers on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const stopTimeout = 10 * time.Second

type Dispatcher interface {
	Dispatch(ctx context.Context, ev core.TriggerEvent) core.RunOutcome
}

// Scheduler dispatches a timer trigger at every tick of a standard five
// field cron expression. Ticks that arrive while a run is still going are
// skipped.
type Scheduler struct {
	spec       string
	loc        *time.Location
	dispatcher Dispatcher

	mu   sync.Mutex
	cron *rcron.Cron
}

func New(spec string, loc *time.Location, dispatcher Dispatcher) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if _, err := rcron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid timer schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, loc: loc, dispatcher: dispatcher}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "scheduler")
	logger := log.FromCtx(ctx)

	c := rcron.New(
		rcron.WithLocation(s.loc),
		rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.Fire(ctx) }); err != nil {
		return fmt.Errorf("register timer schedule: %w", err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	logger.Info().Str("schedule", s.spec).Msg("timer scheduler started")
	return nil
}

// Fire dispatches one timer trigger immediately.
func (s *Scheduler) Fire(ctx context.Context) core.RunOutcome {
	if ctx.Err() != nil {
		return core.RunOutcome{Outcome: core.OutcomeNoAction, Detail: "shutting down"}
	}
	return s.dispatcher.Dispatch(ctx, core.TriggerEvent{
		Kind:       core.TriggerTimer,
		Payload:    "scheduled check",
		ReceivedAt: time.Now(),
	})
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("timer run still in progress after %s", stopTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
