package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep fills defaults and drops empty values
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	finalize(state)
	return nil, nil
}

func finalize(state *InstallState) {
	for k, v := range state.EnvVars {
		if v == "" {
			delete(state.EnvVars, k)
		}
	}
	if state.EnvVars[keyDebug] == "" {
		state.EnvVars[keyDebug] = "0"
	}
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}
