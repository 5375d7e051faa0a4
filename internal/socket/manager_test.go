package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
)

var upgrader = websocket.Upgrader{}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// waitEvent drains the event stream until the wanted kind shows up.
func waitEvent(t *testing.T, m *Manager, kind chat.EventKind) chat.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestAuthenticateIsFirstFrame(t *testing.T) {
	frames := make(chan envelope, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			frames <- env
		}
	}))
	defer srv.Close()

	m := New(Config{URL: wsURL(srv), Token: "tok-123", ReconnectInitial: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitEvent(t, m, chat.EventConnected)

	select {
	case env := <-frames:
		assert.Equal(t, chat.OutAuthenticate, env.Event)
		var auth chat.Authenticate
		require.NoError(t, json.Unmarshal(env.Data, &auth))
		assert.Equal(t, "tok-123", auth.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("no authenticate frame received")
	}
}

func TestInboundEventsAreDecodedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var env envelope
		require.NoError(t, conn.ReadJSON(&env)) // authenticate

		require.NoError(t, conn.WriteJSON(map[string]any{
			"event": "authenticated",
			"data":  map[string]any{"user_id": 1, "status": "connected"},
		}))
		require.NoError(t, conn.WriteJSON(map[string]any{
			"event": "new_message",
			"data": map[string]any{
				"message_id": 31, "sender_id": 42, "receiver_id": 1,
				"body": "ping", "created_at": "2025-03-01T10:15:30",
			},
		}))

		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m := New(Config{URL: wsURL(srv), Token: "tok", ReconnectInitial: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitEvent(t, m, chat.EventConnected)
	ev := waitEvent(t, m, chat.EventAuthenticated)
	assert.Equal(t, int64(1), ev.UserID)

	ev = waitEvent(t, m, chat.EventNewMessage)
	require.NotNil(t, ev.Message)
	assert.Equal(t, int64(31), ev.Message.ID)
	assert.Equal(t, "ping", ev.Message.Body)
}

func TestOutboundEmitsAreEnveloped(t *testing.T) {
	frames := make(chan envelope, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			frames <- env
		}
	}))
	defer srv.Close()

	m := New(Config{URL: wsURL(srv), Token: "tok", ReconnectInitial: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitEvent(t, m, chat.EventConnected)
	<-frames // authenticate

	m.SendMessage(chat.SendMessage{SenderID: 1, ReceiverID: 42, Body: "hello"})
	m.Typing(chat.TypingSignal{SenderID: 1, ReceiverID: 42, IsTyping: true})
	m.MarkRead(chat.MarkRead{SenderID: 42, ReceiverID: 1})

	env := <-frames
	assert.Equal(t, chat.OutSendMessage, env.Event)
	var send chat.SendMessage
	require.NoError(t, json.Unmarshal(env.Data, &send))
	assert.Equal(t, chat.SendMessage{SenderID: 1, ReceiverID: 42, Body: "hello"}, send)

	env = <-frames
	assert.Equal(t, chat.OutTyping, env.Event)
	var typing chat.TypingSignal
	require.NoError(t, json.Unmarshal(env.Data, &typing))
	assert.True(t, typing.IsTyping)

	env = <-frames
	assert.Equal(t, chat.OutMarkRead, env.Event)
	var read chat.MarkRead
	require.NoError(t, json.Unmarshal(env.Data, &read))
	assert.Equal(t, chat.MarkRead{SenderID: 42, ReceiverID: 1}, read)
}

func TestReconnectAfterServerClose(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		n := conns.Add(1)

		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			conn.Close()
			return
		}
		if n == 1 {
			// Drop the first connection straight after the handshake.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m := New(Config{URL: wsURL(srv), Token: "tok", ReconnectInitial: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitEvent(t, m, chat.EventConnected)
	waitEvent(t, m, chat.EventDisconnected)
	waitEvent(t, m, chat.EventConnected)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}
