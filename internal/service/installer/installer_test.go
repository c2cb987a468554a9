package installer

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestChoiceStep_SelectsValue(t *testing.T) {
	state := NewInstallState()
	step := NewChannelStep()

	next, _ := step.Update(key("down"), state, 80, 24)
	require.Same(t, step, next)
	next, _ = step.Update(key("enter"), state, 80, 24)

	assert.Nil(t, next)
	assert.Equal(t, "telegram", state.EnvVars[keyTransport])
}

func TestInputStep_SkipsWhenNotApplicable(t *testing.T) {
	state := NewInstallState()
	state.EnvVars[keyProvider] = "ollama"

	next, _ := NewAPIKeyStep().Update(nextMsg{}, state, 80, 24)
	assert.Nil(t, next)
	assert.NotContains(t, state.EnvVars, keyAPIKey)
}

func TestInputStep_DefaultAndRequired(t *testing.T) {
	state := NewInstallState()
	state.EnvVars[keyProvider] = "ollama"

	next, _ := NewOllamaURLStep().Update(key("enter"), state, 80, 24)
	assert.Nil(t, next)
	assert.Equal(t, "http://localhost:11434", state.EnvVars[keyBaseURL])

	state.EnvVars[keyProvider] = "custom"
	delete(state.EnvVars, keyBaseURL)
	step := NewCustomURLStep()
	next, _ = step.Update(key("enter"), state, 80, 24)
	assert.Same(t, step, next, "empty required value keeps the step open")
	assert.Contains(t, step.View(state), "a value is required")

	step.Update(key("http://llm.lan"), state, 80, 24)
	next, _ = step.Update(key("enter"), state, 80, 24)
	assert.Nil(t, next)
	assert.Equal(t, "http://llm.lan", state.EnvVars[keyBaseURL])
}

func TestFinalize(t *testing.T) {
	state := NewInstallState()
	state.EnvVars["EMPTY"] = ""
	state.EnvVars[keyProvider] = "openai"

	finalize(state)

	assert.NotContains(t, state.EnvVars, "EMPTY")
	assert.Equal(t, "0", state.EnvVars[keyDebug])
	assert.Equal(t, "openai", state.EnvVars[keyProvider])
}

func TestWriteEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runtime")

	path, err := WriteEnv(dir, map[string]string{
		"LLM_PROVIDER":    "openai",
		"CHAT_TRANSPORT":  "matrix",
		"MATRIX_PASSWORD": "two words",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CHAT_TRANSPORT=matrix\nLLM_PROVIDER=openai\nMATRIX_PASSWORD=\"two words\"\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = WriteEnv(dir, map[string]string{"LLM_PROVIDER": "ollama"})
	assert.ErrorIs(t, err, ErrEnvExists)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LLM_PROVIDER=openai", "existing file is untouched")
}

func TestWizard_SkipsUnselectedTransportSteps(t *testing.T) {
	m := model{
		steps: []Step{
			NewChannelStep(),
			NewTelegramSteps()[0],
			NewMatrixSteps()[0],
			NewFinalizationStep(),
		},
		state: NewInstallState(),
	}

	// Matrix is the first choice.
	updated, _ := m.Update(key("enter"))
	m = updated.(model)
	require.Equal(t, 1, m.currentStep)

	// The Telegram step sees it is not needed and completes.
	updated, _ = m.Update(nextMsg{})
	m = updated.(model)
	require.Equal(t, 2, m.currentStep)

	updated, _ = m.Update(key("https://matrix.example.org"))
	m = updated.(model)
	updated, _ = m.Update(key("enter"))
	m = updated.(model)
	require.Equal(t, 3, m.currentStep)

	assert.Equal(t, "matrix", m.state.EnvVars[keyTransport])
	assert.Equal(t, "https://matrix.example.org", m.state.EnvVars[keyMatrixServer])
	assert.NotContains(t, m.state.EnvVars, keyTelegramToken)
}
