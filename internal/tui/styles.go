package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	infoColor    = lipgloss.Color("#06B6D4")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	blurredBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	agentLabelStyle = lipgloss.NewStyle().
			Foreground(infoColor).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	failedStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	fieldErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	signedInStyle = lipgloss.NewStyle().
			Foreground(successColor)

	signedOutStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// toastStyle picks a border color by notification kind.
func toastStyle(kind string) lipgloss.Style {
	base := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	switch kind {
	case "success":
		return base.BorderForeground(successColor)
	case "error":
		return base.BorderForeground(errorColor)
	case "warning":
		return base.BorderForeground(warningColor)
	default:
		return base.BorderForeground(infoColor)
	}
}
