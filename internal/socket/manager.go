// Package socket owns the single persistent channel to the server. It dials,
// authenticates, decodes pushes into chat events, and reconnects on its own;
// callers never implement retry and never see a panic from here.
package socket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
)

// envelope is the wire frame: a named event plus its JSON data.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Config struct {
	URL   string
	Token string

	PingInterval   time.Duration // default 25s
	WriteDeadline  time.Duration // default 10s
	ReadIdleLimit  time.Duration // default 60s
	MaxMessageSize int64         // default 64 KiB
	SendBuffer     int           // default 256

	ReconnectInitial time.Duration // default 500ms
	ReconnectMax     time.Duration // default 30s
}

type Manager struct {
	cfg    Config
	log    *zap.SugaredLogger
	events chan chat.Event
	send   chan envelope
}

func New(cfg Config, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteDeadline == 0 {
		cfg.WriteDeadline = 10 * time.Second
	}
	if cfg.ReadIdleLimit == 0 {
		cfg.ReadIdleLimit = 60 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 65536
	}
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = 256
	}
	if cfg.ReconnectInitial == 0 {
		cfg.ReconnectInitial = 500 * time.Millisecond
	}
	if cfg.ReconnectMax == 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		log:    log,
		events: make(chan chat.Event, 256),
		send:   make(chan envelope, cfg.SendBuffer),
	}
}

// Events is the inbound stream: transport lifecycle plus server pushes,
// delivered verbatim as decoded.
func (m *Manager) Events() <-chan chat.Event { return m.events }

// Run dials and re-dials until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.ReconnectInitial
	b.MaxInterval = m.cfg.ReconnectMax
	b.MaxElapsedTime = 0 // retry forever

	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.cfg.URL, nil)
		if err != nil {
			m.log.Warnw("socket dial failed", "url", m.cfg.URL, "error", err)
			select {
			case <-time.After(b.NextBackOff()):
				continue
			case <-ctx.Done():
				return
			}
		}
		b.Reset()
		m.runConn(ctx, conn)
		m.deliver(chat.Event{Kind: chat.EventDisconnected})
		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

// runConn services one live connection until it drops.
func (m *Manager) runConn(ctx context.Context, conn *websocket.Conn) {
	socketID := uuid.New().String()
	m.log.Infow("socket connected", "socket_id", socketID)
	defer conn.Close()

	conn.SetReadLimit(m.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(m.cfg.ReadIdleLimit))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.cfg.ReadIdleLimit))
	})

	m.deliver(chat.Event{Kind: chat.EventConnected})

	// Authenticate first, before anything queued goes out. The server is
	// the sole authority on the token; no inspection happens here.
	if err := m.writeEnvelope(conn, chat.OutAuthenticate, chat.Authenticate{Token: m.cfg.Token}); err != nil {
		m.log.Warnw("authenticate write failed", "socket_id", socketID, "error", err)
		return
	}

	done := make(chan struct{})
	defer close(done)
	go m.writePump(ctx, conn, socketID, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.log.Infow("socket closed", "socket_id", socketID, "error", err)
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Debugw("bad frame dropped", "socket_id", socketID, "error", err)
			continue
		}
		ev, err := chat.DecodeEvent(env.Event, env.Data)
		if err != nil {
			m.log.Debugw("event dropped", "socket_id", socketID, "error", err)
			continue
		}
		m.deliver(ev)
	}
}

func (m *Manager) writePump(ctx context.Context, conn *websocket.Conn, socketID string, done chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case env := <-m.send:
			conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteDeadline))
			if err := conn.WriteJSON(env); err != nil {
				m.log.Warnw("socket write failed", "socket_id", socketID, "event", env.Event, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.cfg.WriteDeadline)); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) writeEnvelope(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteDeadline))
	return conn.WriteJSON(envelope{Event: event, Data: data})
}

// SendMessage, Typing and MarkRead satisfy chat.Emitter. Emits are queued
// fire-and-forget; anything unsendable is dropped and resolved by reconnect.
func (m *Manager) SendMessage(p chat.SendMessage) { m.enqueue(chat.OutSendMessage, p) }

func (m *Manager) Typing(p chat.TypingSignal) { m.enqueue(chat.OutTyping, p) }

func (m *Manager) MarkRead(p chat.MarkRead) { m.enqueue(chat.OutMarkRead, p) }

func (m *Manager) enqueue(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Errorw("marshal outbound event", "event", event, "error", err)
		return
	}
	select {
	case m.send <- envelope{Event: event, Data: data}:
	default:
		m.log.Warnw("send queue full, dropping", "event", event)
	}
}

func (m *Manager) deliver(ev chat.Event) {
	select {
	case m.events <- ev:
	default:
		m.log.Warnw("event queue full, dropping", "kind", ev.Kind)
	}
}
