package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
)

const sidebarWidth = 32

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.bannerView())
	main := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.chatPaneView())
	b.WriteString(main)
	b.WriteString("\n")
	b.WriteString(m.footerView())

	if m.showDirectory {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.directoryView())
	}
	return b.String()
}

func (m Model) bannerView() string {
	switch {
	case !m.snap.Connected:
		return reconnectStyle.Render("⟳ Reconnecting...") + "\n"
	case m.snap.Mode == chat.ModeMonitoring && m.snap.Counterpart != nil:
		return monitorBanner.Render("👁 Monitoring (read-only)") + "\n"
	default:
		return titleStyle.Render("YourUni Chat") + "\n"
	}
}

func (m Model) sidebarView() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Conversations"))
	if len(m.snap.Summaries) == 0 {
		rows = append(rows, mutedStyle.Render("no conversations yet"))
	}
	for i, c := range m.snap.Summaries {
		label := fitString(c.CounterpartName, sidebarWidth-8)
		if c.UnreadCount > 0 {
			label += " " + unreadStyle.Render(fmt.Sprintf("(%d)", c.UnreadCount))
		}
		meta := mutedStyle.Render(fitString(c.CounterpartRole, sidebarWidth-10))
		if !c.LastMessageTime.IsZero() {
			meta += mutedStyle.Render(" · " + relativeTime(c.LastMessageTime.Time))
		}
		row := label + "\n" + meta
		if i == m.selected && m.focus == paneSidebar {
			rows = append(rows, selectedRowStyle.Render(row))
		} else {
			rows = append(rows, rowStyle.Render(row))
		}
	}
	return sidebarStyle.
		Width(sidebarWidth).
		Height(max(5, m.height-5)).
		Render(strings.Join(rows, "\n"))
}

func (m Model) chatPaneView() string {
	w := max(20, m.width-sidebarWidth-4)

	header := mutedStyle.Render("select a conversation (enter) · ctrl+n for directory")
	if c := m.snap.Counterpart; c != nil {
		status := ""
		if m.snap.CounterpartOnline {
			status = ownMsgStyle.Render(" ●")
		}
		header = fmt.Sprintf("%s%s  %s", c.CounterpartName, status, mutedStyle.Render(c.CounterpartRole))
	}

	body := m.viewport.View()
	if m.snap.Phase == chat.PhaseLoadingHistory {
		body = mutedStyle.Render("loading history...")
	}

	typing := ""
	if m.snap.CounterpartTyping {
		typing = mutedStyle.Render("typing...")
	}

	inputLine := m.input.View()
	if m.snap.Mode == chat.ModeMonitoring {
		inputLine = mutedStyle.Render("monitoring: sending disabled")
	}

	pane := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(w).Render(header),
		body,
		typing,
		inputLine,
	)
	return chatPaneStyle.Width(w + 2).Render(pane)
}

func (m Model) renderTranscript() string {
	if len(m.snap.Messages) == 0 {
		return mutedStyle.Render("no messages")
	}
	var b strings.Builder
	for _, msg := range m.snap.Messages {
		own := msg.SenderID == m.snap.Viewer.UserID
		name := msg.SenderName
		style := otherMsgStyle
		if own {
			name = "you"
			style = ownMsgStyle
		}
		tick := ""
		if own {
			if msg.IsRead {
				tick = " ✓✓"
			} else {
				tick = " ✓"
			}
		}
		ts := ""
		if !msg.CreatedAt.IsZero() {
			ts = msg.CreatedAt.Format("15:04")
		}
		b.WriteString(fmt.Sprintf("%s %s%s\n%s\n\n",
			style.Render(name),
			mutedStyle.Render(ts),
			mutedStyle.Render(tick),
			msg.Body,
		))
	}
	return b.String()
}

func (m Model) footerView() string {
	help := mutedStyle.Render("tab: switch pane · enter: open/send · ctrl+n: new chat · ctrl+c: quit")
	var toasts []string
	for _, t := range m.toasts {
		if t.level == chat.NoticeError {
			toasts = append(toasts, errorStyle.Render(t.text))
		} else {
			toasts = append(toasts, unreadStyle.Render(t.text))
		}
	}
	line := help
	if len(toasts) > 0 {
		line = strings.Join(toasts, "  ") + "  " + help
	}
	return footerStyle.Width(max(20, m.width-2)).Render(line)
}

func (m Model) directoryView() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Start a conversation"))
	if m.directory == nil {
		rows = append(rows, mutedStyle.Render("loading..."))
	}
	for i, u := range m.directory {
		row := fmt.Sprintf("%s  %s", fitString(u.FullName, 28), mutedStyle.Render(u.RoleName))
		if i == m.dirSelected {
			rows = append(rows, selectedRowStyle.Render(row))
		} else {
			rows = append(rows, rowStyle.Render(row))
		}
	}
	rows = append(rows, "", mutedStyle.Render("enter: open · esc: close"))
	return overlayStyle.Render(strings.Join(rows, "\n"))
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func fitString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
