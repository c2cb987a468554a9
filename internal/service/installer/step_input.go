package installer

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputStep collects one free-text value. Steps whose when returns false
// complete without asking.
type InputStep struct {
	input    textinput.Model
	title    string
	key      string
	fallback string
	required bool
	when     func(*InstallState) bool
	err      string
}

type inputOption func(*InputStep)

func secret() inputOption {
	return func(s *InputStep) {
		s.input.EchoMode = textinput.EchoPassword
		s.input.EchoCharacter = '•'
	}
}

func required() inputOption {
	return func(s *InputStep) { s.required = true }
}

// withDefault is stored when the user submits an empty value.
func withDefault(v string) inputOption {
	return func(s *InputStep) { s.fallback = v }
}

func onlyWhen(fn func(*InstallState) bool) inputOption {
	return func(s *InputStep) { s.when = fn }
}

func NewInputStep(title, key, placeholder string, opts ...inputOption) *InputStep {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 50
	ti.Placeholder = placeholder

	s := &InputStep{input: ti, title: title, key: key}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InputStep) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return nextMsg{} })
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.when != nil && !s.when(state) {
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" {
			val = s.fallback
		}
		if val == "" && s.required {
			s.err = "a value is required"
			return s, cmd
		}
		if val != "" {
			state.EnvVars[s.key] = val
		}
		return nil, nil
	}
	return s, cmd
}

func (s *InputStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString(s.title)
	if !s.required {
		b.WriteString(" (optional)")
	}
	b.WriteString(":\n\n")
	b.WriteString(s.input.View())
	b.WriteString("\n\n")
	if s.err != "" {
		b.WriteString(errorStyle.Render(s.err) + "\n\n")
	}
	b.WriteString("(press enter to confirm)\n")
	return b.String()
}
