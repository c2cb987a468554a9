package relevance

import (
	"context"
	"fmt"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type State string

const (
	StateIdle       State = "idle"
	StateGathering  State = "gathering_context"
	StateEvaluating State = "evaluating"
	StateActing     State = "acting"
	StateDone       State = "done"
)

var transitions = map[State][]State{
	StateIdle:       {StateGathering, StateDone},
	StateGathering:  {StateEvaluating, StateDone},
	StateEvaluating: {StateActing, StateDone},
	StateActing:     {StateDone},
}

// Machine tracks the state of one run and rejects out-of-order transitions.
type Machine struct {
	runID string
	state State
}

func NewMachine(runID string) *Machine {
	return &Machine{runID: runID, state: StateIdle}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) To(ctx context.Context, next State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			log.FromCtx(ctx).Debug().
				Str("run_id", m.runID).
				Str("from", string(m.state)).
				Str("state", string(next)).
				Msg("run state changed")
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid run transition %s -> %s", m.state, next)
}

// Finish moves the machine to done from any state.
func (m *Machine) Finish(ctx context.Context) {
	if m.state == StateDone {
		return
	}
	_ = m.To(ctx, StateDone)
}
