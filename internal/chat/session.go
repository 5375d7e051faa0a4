package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingHistory
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadingHistory:
		return "loading"
	case PhaseActive:
		return "active"
	default:
		return "idle"
	}
}

// Mode is decided once when a conversation is opened and fixed until the
// next open. Monitoring means the viewer is observing a conversation between
// two other parties and must leave no trace in it.
type Mode int

const (
	ModeParticipant Mode = iota
	ModeMonitoring
)

func (m Mode) String() string {
	if m == ModeMonitoring {
		return "monitoring"
	}
	return "participant"
}

// HistoryService is the REST surface the session depends on. withID is zero
// outside monitoring mode; in monitoring mode it names the second real
// participant so the server returns the right two-party thread.
type HistoryService interface {
	Conversations(ctx context.Context) ([]ConversationSummary, error)
	Messages(ctx context.Context, counterpartID, withID int64) ([]Message, error)
}

// Emitter is the outbound half of the socket channel. Emits are
// fire-and-forget; the transport owns delivery and reconnection.
type Emitter interface {
	SendMessage(SendMessage)
	Typing(TypingSignal)
	MarkRead(MarkRead)
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient, non-blocking user-facing message.
type Notice struct {
	Level NoticeLevel
	Text  string
}

type SessionConfig struct {
	Viewer  Viewer
	API     HistoryService
	Emitter Emitter
	Logger  *zap.SugaredLogger

	TypingDebounce      time.Duration // default 1s
	SummaryRefreshDelay time.Duration // default 500ms
	RequestTimeout      time.Duration // default 15s

	OnChange func()       // observable state changed
	OnNotice func(Notice) // transient banner/toast
}

// Session is the conversation session controller. It owns which conversation
// is active, mediates between REST-fetched history and socket pushes, and is
// the only writer to the transcript and presence state. Every entry point
// runs to completion under one mutex; async completions re-enter through a
// token check so a stale history response can never clobber a newer
// conversation.
type Session struct {
	mu sync.Mutex

	viewer Viewer
	api    HistoryService
	emit   Emitter
	log    *zap.SugaredLogger

	debounce     time.Duration
	refreshDelay time.Duration
	reqTimeout   time.Duration
	onChange     func()
	onNotice     func(Notice)

	phase       Phase
	mode        Mode
	counterpart *ConversationSummary
	transcript  Transcript
	presence    *Presence
	summaries   []ConversationSummary

	connected     bool
	authenticated bool

	historyToken uint64

	typingTimer  *time.Timer
	typingActive bool
	typingTo     int64
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.TypingDebounce == 0 {
		cfg.TypingDebounce = time.Second
	}
	if cfg.SummaryRefreshDelay == 0 {
		cfg.SummaryRefreshDelay = 500 * time.Millisecond
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Session{
		viewer:       cfg.Viewer,
		api:          cfg.API,
		emit:         cfg.Emitter,
		log:          cfg.Logger,
		debounce:     cfg.TypingDebounce,
		refreshDelay: cfg.SummaryRefreshDelay,
		reqTimeout:   cfg.RequestTimeout,
		onChange:     cfg.OnChange,
		onNotice:     cfg.OnNotice,
		presence:     NewPresence(),
	}
}

// RefreshSummaries re-fetches the sidebar from the server. Unread counts are
// never computed locally; the summary endpoint is the single source of truth
// for them.
func (s *Session) RefreshSummaries() {
	go s.refreshSummaries()
}

func (s *Session) refreshSummaries() {
	ctx, cancel := context.WithTimeout(context.Background(), s.reqTimeout)
	defer cancel()
	sums, err := s.api.Conversations(ctx)
	if err != nil {
		s.log.Warnw("refresh conversations failed", "error", err)
		s.notice(NoticeError, "Could not refresh conversations")
		return
	}
	s.mu.Lock()
	s.summaries = sums
	s.mu.Unlock()
	s.changed()
}

// OpenConversation selects a counterpart from the already-loaded summary
// list and loads its history. Switching replaces the transcript wholesale,
// never merges.
func (s *Session) OpenConversation(counterpartID int64) {
	s.mu.Lock()
	var summary *ConversationSummary
	for i := range s.summaries {
		if s.summaries[i].CounterpartID == counterpartID {
			c := s.summaries[i]
			summary = &c
			break
		}
	}
	if summary == nil {
		s.mu.Unlock()
		s.log.Warnw("open of unknown conversation ignored", "counterpart_id", counterpartID)
		return
	}

	stopTyping := s.stopTypingLocked()

	mode := ModeParticipant
	if len(summary.ParticipantIDs) == 2 && !containsID(summary.ParticipantIDs, s.viewer.UserID) {
		mode = ModeMonitoring
	}
	s.mode = mode
	s.counterpart = summary
	s.phase = PhaseLoadingHistory
	s.transcript.ReplaceAll(nil)

	s.historyToken++
	token := s.historyToken
	withID := int64(0)
	if mode == ModeMonitoring {
		for _, id := range summary.ParticipantIDs {
			if id != counterpartID {
				withID = id
			}
		}
	}
	s.mu.Unlock()

	if stopTyping != nil {
		s.emit.Typing(*stopTyping)
	}
	s.changed()
	go s.loadHistory(token, counterpartID, withID)
}

// StartConversation opens a thread with a directory user who may not have a
// summary row yet.
func (s *Session) StartConversation(u UserSummary) {
	s.mu.Lock()
	known := false
	for i := range s.summaries {
		if s.summaries[i].CounterpartID == u.UserID {
			known = true
			break
		}
	}
	if !known {
		s.summaries = append(s.summaries, ConversationSummary{
			CounterpartID:    u.UserID,
			CounterpartName:  u.FullName,
			CounterpartEmail: u.Email,
			CounterpartRole:  u.RoleName,
		})
	}
	s.mu.Unlock()
	s.OpenConversation(u.UserID)
}

func (s *Session) loadHistory(token uint64, counterpartID, withID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.reqTimeout)
	defer cancel()
	msgs, err := s.api.Messages(ctx, counterpartID, withID)

	s.mu.Lock()
	if token != s.historyToken {
		s.mu.Unlock()
		s.log.Debugw("stale history response discarded",
			"counterpart_id", counterpartID, "token", token)
		return
	}
	if err != nil {
		s.phase = PhaseIdle
		s.counterpart = nil
		s.mu.Unlock()
		s.log.Warnw("load history failed", "counterpart_id", counterpartID, "error", err)
		s.notice(NoticeError, "Could not load messages")
		s.changed()
		return
	}
	s.transcript.ReplaceAll(msgs)
	s.phase = PhaseActive
	var receipt *MarkRead
	if s.mode == ModeParticipant {
		// A monitor never marks anything read.
		receipt = &MarkRead{SenderID: counterpartID, ReceiverID: s.viewer.UserID}
	}
	s.mu.Unlock()

	if receipt != nil {
		s.emit.MarkRead(*receipt)
	}
	s.changed()
	// Deliberate extra round trip so the sidebar and the server agree even
	// if this load raced a push.
	s.refreshSummaries()
}

// HandleEvent is the single reducer for inbound channel events.
func (s *Session) HandleEvent(ev Event) {
	switch ev.Kind {
	case EventConnected:
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		s.changed()
	case EventDisconnected:
		s.mu.Lock()
		s.connected = false
		s.authenticated = false
		s.presence.Reset()
		s.mu.Unlock()
		s.changed()
	case EventAuthenticated:
		// The still-open conversation is not re-marked read after a
		// re-authentication; receipts resume with the next open.
		s.mu.Lock()
		s.authenticated = true
		s.mu.Unlock()
		s.changed()
	case EventError:
		s.notice(NoticeError, ev.Err)
	case EventNewMessage:
		s.handleNewMessage(ev)
	case EventMessageSent:
		s.handleMessageSent(ev)
	case EventMessagesRead:
		s.handleMessagesRead(ev)
	case EventUserTyping:
		s.handleUserTyping(ev)
	case EventUserOnline:
		s.mu.Lock()
		s.presence.SetOnline(ev.UserID)
		s.mu.Unlock()
		s.changed()
	default:
		s.log.Debugw("unhandled event", "kind", ev.Kind)
	}
}

func (s *Session) handleNewMessage(ev Event) {
	if ev.Message == nil {
		return
	}
	m := *ev.Message
	s.mu.Lock()
	if s.phase == PhaseActive && s.mode == ModeParticipant &&
		s.counterpart != nil && m.SenderID == s.counterpart.CounterpartID {
		s.transcript.Append(m)
		receipt := MarkRead{SenderID: m.SenderID, ReceiverID: s.viewer.UserID}
		s.mu.Unlock()
		s.emit.MarkRead(receipt)
		go s.refreshSummaries()
		s.changed()
		return
	}
	// Not for the open transcript (different sender, or monitoring view,
	// which does not live-update). The sidebar still has to move.
	fromOther := s.counterpart == nil || m.SenderID != s.counterpart.CounterpartID
	s.mu.Unlock()

	if fromOther {
		s.notice(NoticeInfo, fmt.Sprintf("New message from %s", senderLabel(m)))
	}
	go s.refreshSummaries()
	s.changed()
}

func (s *Session) handleMessageSent(ev Event) {
	if ev.Message == nil {
		return
	}
	m := *ev.Message
	s.mu.Lock()
	// Guard against echoes for a conversation that is no longer open.
	if s.counterpart != nil && m.ReceiverID == s.counterpart.CounterpartID {
		s.transcript.Append(m)
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) handleMessagesRead(ev Event) {
	s.mu.Lock()
	if s.phase == PhaseActive && s.mode == ModeParticipant &&
		s.counterpart != nil && ev.ReaderID == s.counterpart.CounterpartID {
		// Watermark: every outbound message flips at once.
		s.transcript.MarkSentRead(s.viewer.UserID)
		s.mu.Unlock()
		go s.refreshSummaries()
		s.changed()
		return
	}
	s.mu.Unlock()
}

func (s *Session) handleUserTyping(ev Event) {
	s.mu.Lock()
	if s.counterpart == nil || ev.UserID != s.counterpart.CounterpartID {
		s.mu.Unlock()
		return
	}
	// The sender owns debounce timing; the payload is applied as-is.
	s.presence.SetTyping(ev.UserID, ev.IsTyping)
	s.mu.Unlock()
	s.changed()
}

// Send emits the message and reports whether it was accepted. An empty body,
// no active conversation, or a monitoring view all make the send inert: no
// emit, no error, and the caller keeps the input content.
func (s *Session) Send(body string) bool {
	body = strings.TrimSpace(body)
	s.mu.Lock()
	if body == "" || s.phase != PhaseActive || s.counterpart == nil || s.mode != ModeParticipant {
		s.mu.Unlock()
		return false
	}
	out := SendMessage{
		SenderID:   s.viewer.UserID,
		ReceiverID: s.counterpart.CounterpartID,
		Body:       body,
	}
	s.mu.Unlock()

	// Nothing is appended locally; the message appears once the server
	// echoes message_sent with its authoritative id.
	s.emit.SendMessage(out)
	time.AfterFunc(s.refreshDelay, s.refreshSummaries)
	return true
}

// InputActivity registers a keystroke in the composer. The first keystroke
// of a burst emits typing=true; a trailing timer emits typing=false after
// the debounce window with no further keystrokes.
func (s *Session) InputActivity() {
	s.mu.Lock()
	if s.phase != PhaseActive || s.counterpart == nil || s.mode != ModeParticipant {
		s.mu.Unlock()
		return
	}
	to := s.counterpart.CounterpartID
	first := !s.typingActive
	s.typingActive = true
	s.typingTo = to
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.debounce, s.typingExpired)
	s.mu.Unlock()

	if first {
		s.emit.Typing(TypingSignal{SenderID: s.viewer.UserID, ReceiverID: to, IsTyping: true})
	}
}

func (s *Session) typingExpired() {
	s.mu.Lock()
	if !s.typingActive {
		s.mu.Unlock()
		return
	}
	s.typingActive = false
	to := s.typingTo
	s.mu.Unlock()
	s.emit.Typing(TypingSignal{SenderID: s.viewer.UserID, ReceiverID: to, IsTyping: false})
}

// stopTypingLocked cancels a pending debounce when the composer moves to a
// different counterpart, returning the trailing signal still owed to the
// previous one. Caller holds s.mu and emits after unlock.
func (s *Session) stopTypingLocked() *TypingSignal {
	if !s.typingActive {
		return nil
	}
	s.typingActive = false
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	return &TypingSignal{SenderID: s.viewer.UserID, ReceiverID: s.typingTo, IsTyping: false}
}

// Snapshot is an immutable copy of everything the view renders.
type Snapshot struct {
	Viewer            Viewer
	Phase             Phase
	Mode              Mode
	Counterpart       *ConversationSummary
	Messages          []Message
	Summaries         []ConversationSummary
	CounterpartTyping bool
	CounterpartOnline bool
	Connected         bool
	Authenticated     bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Viewer:        s.viewer,
		Phase:         s.phase,
		Mode:          s.mode,
		Messages:      s.transcript.Messages(),
		Summaries:     append([]ConversationSummary(nil), s.summaries...),
		Connected:     s.connected,
		Authenticated: s.authenticated,
	}
	if s.counterpart != nil {
		c := *s.counterpart
		snap.Counterpart = &c
		snap.CounterpartTyping = s.presence.IsTyping(c.CounterpartID)
		snap.CounterpartOnline = s.presence.IsOnline(c.CounterpartID)
	}
	return snap
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Session) notice(level NoticeLevel, text string) {
	if s.onNotice != nil {
		s.onNotice(Notice{Level: level, Text: text})
	}
}

func senderLabel(m Message) string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return fmt.Sprintf("user %d", m.SenderID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
