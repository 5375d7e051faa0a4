package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(20, m.width-sidebarWidth-6)
		m.viewport.Height = max(5, m.height-7)
		m.input.Width = max(20, m.width-sidebarWidth-10)
		m.refreshTranscript()

	case RefreshMsg:
		m.snap = m.sess.Snapshot()
		m.refreshTranscript()

	case NoticeMsg:
		m.toastSeq++
		m.toasts = append(m.toasts, toast{id: m.toastSeq, text: msg.Text, level: msg.Level})
		cmds = append(cmds, expireToast(m.toastSeq))

	case toastExpiredMsg:
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.id != msg.id {
				kept = append(kept, t)
			}
		}
		m.toasts = kept

	case usersLoadedMsg:
		if msg.err != nil {
			m.log.Warnw("directory load failed", "error", msg.err)
			m.toastSeq++
			m.toasts = append(m.toasts, toast{id: m.toastSeq, text: "Could not load users", level: chat.NoticeError})
			cmds = append(cmds, expireToast(m.toastSeq))
			m.showDirectory = false
			break
		}
		m.directory = msg.users
		m.dirSelected = 0

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+n":
		m.showDirectory = true
		m.directory = nil
		return m, m.loadUsers()
	}

	if m.showDirectory {
		return m.handleDirectoryKey(msg)
	}

	switch msg.String() {
	case "tab":
		if m.focus == paneSidebar {
			m.focus = paneChat
			m.input.Focus()
		} else {
			m.focus = paneSidebar
			m.input.Blur()
		}
		return m, nil
	}

	if m.focus == paneSidebar {
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.snap.Summaries)-1 {
				m.selected++
			}
		case "enter":
			if m.selected < len(m.snap.Summaries) {
				m.sess.OpenConversation(m.snap.Summaries[m.selected].CounterpartID)
				m.focus = paneChat
				m.input.Focus()
			}
		}
		return m, nil
	}

	// Chat pane.
	switch msg.String() {
	case "esc":
		m.focus = paneSidebar
		m.input.Blur()
		return m, nil
	case "enter":
		if m.sess.Send(m.input.Value()) {
			m.input.Reset()
		}
		return m, nil
	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.sess.InputActivity()
	}
	return m, cmd
}

func (m Model) handleDirectoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showDirectory = false
	case "up", "k":
		if m.dirSelected > 0 {
			m.dirSelected--
		}
	case "down", "j":
		if m.dirSelected < len(m.directory)-1 {
			m.dirSelected++
		}
	case "enter":
		if m.dirSelected < len(m.directory) {
			m.sess.StartConversation(m.directory[m.dirSelected])
			m.showDirectory = false
			m.focus = paneChat
			m.input.Focus()
		}
	}
	return m, nil
}

// refreshTranscript re-renders the viewport from the latest snapshot and
// pins to the bottom when the conversation changed or grew.
func (m *Model) refreshTranscript() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	var current int64
	if m.snap.Counterpart != nil {
		current = m.snap.Counterpart.CounterpartID
	}
	if current != m.renderedCounterpart || atBottom {
		m.viewport.GotoBottom()
	}
	m.renderedCounterpart = current
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
