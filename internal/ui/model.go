// Package ui renders session state into a terminal dashboard. It holds no
// chat state of its own: every frame is a projection of a session snapshot,
// and every intent (open, send, keystroke) is forwarded to the session.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
)

// Directory looks up users the viewer may start a conversation with.
type Directory interface {
	Users(ctx context.Context) ([]chat.UserSummary, error)
}

type pane int

const (
	paneSidebar pane = iota
	paneChat
)

// Messages posted into the program from outside the update loop.

// RefreshMsg means observable session state changed; re-snapshot and render.
type RefreshMsg struct{}

// NoticeMsg is a transient toast (socket error, off-screen message, ...).
type NoticeMsg chat.Notice

type usersLoadedMsg struct {
	users []chat.UserSummary
	err   error
}

type toastExpiredMsg struct{ id int }

type toast struct {
	id    int
	text  string
	level chat.NoticeLevel
}

type Model struct {
	sess *chat.Session
	dir  Directory
	log  *zap.SugaredLogger

	snap chat.Snapshot

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
	focus    pane
	selected int

	showDirectory bool
	directory     []chat.UserSummary
	dirSelected   int

	toasts   []toast
	toastSeq int

	renderedCounterpart int64
}

func New(sess *chat.Session, dir Directory, log *zap.SugaredLogger) Model {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.Width = 50

	return Model{
		sess:     sess,
		dir:      dir,
		log:      log,
		snap:     sess.Snapshot(),
		input:    input,
		viewport: viewport.New(80, 20),
		focus:    paneSidebar,
	}
}

func (m Model) Init() tea.Cmd {
	m.sess.RefreshSummaries()
	return textinput.Blink
}

func (m Model) loadUsers() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		users, err := m.dir.Users(ctx)
		return usersLoadedMsg{users: users, err: err}
	}
}

func expireToast(id int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}
