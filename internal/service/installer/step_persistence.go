package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
)

var ErrEnvExists = errors.New(".env file already exists")

// SaveEnvStep writes the collected configuration to .env file
type SaveEnvStep struct {
	dir   string
	err   error
	saved bool
}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{dir: config.GetRuntimePath()}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}
	if s.err != nil {
		return s, nil
	}

	if _, err := WriteEnv(s.dir, state.EnvVars); err != nil {
		s.err = err
		return s, nil
	}

	s.saved = true
	return nil, nil
}

func (s *SaveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.saved {
		return "Configuration saved successfully!\n"
	}
	return "Saving configuration...\n"
}

// WriteEnv creates dir/.env from vars and returns its path. An existing file
// is never overwritten.
func WriteEnv(dir string, vars map[string]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create runtime directory: %w", err)
	}

	envPath := filepath.Join(dir, ".env")
	f, err := os.OpenFile(envPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w at %s", ErrEnvExists, envPath)
		}
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString(renderEnv(vars)); err != nil {
		return "", err
	}
	return envPath, nil
}

// renderEnv sorts keys so the file is stable across runs.
func renderEnv(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := vars[k]
		if strings.ContainsAny(v, " #\"'") {
			v = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
		}
		fmt.Fprintf(&b, "%s=%s\n", k, v)
	}
	return b.String()
}
