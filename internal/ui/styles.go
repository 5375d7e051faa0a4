package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#7C3AED")
	selfColor   = lipgloss.Color("#10B981")
	mutedColor  = lipgloss.Color("#9CA3AF")
	errorColor  = lipgloss.Color("#EF4444")
	warnColor   = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1).
			MarginRight(1)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(selfColor).
				Bold(true).
				PaddingLeft(1).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(selfColor)

	rowStyle = lipgloss.NewStyle().PaddingLeft(2)

	chatPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	ownMsgStyle    = lipgloss.NewStyle().Foreground(selfColor)
	otherMsgStyle  = lipgloss.NewStyle().Foreground(accentColor)
	unreadStyle    = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	monitorBanner  = lipgloss.NewStyle().Foreground(warnColor).Bold(true).Padding(0, 1)
	reconnectStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(1, 2)
)
