package ui

import "github.com/charmbracelet/lipgloss"

// ANSI colors so the CLI reads well on both light and dark terminals.
var (
	// TitleStyle ANSI 6 (cyan) for section titles
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle ANSI 2 (green) for arguments and usage lines
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle ANSI 8 (bright black) so descriptions stay in the background
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle ANSI 3 (yellow) for flags
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// OutcomeStyles colors run outcomes printed by the process command.
	OutcomeStyles = map[string]lipgloss.Style{
		"success":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		"no_action": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		"error":     lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)
