package chat

import (
	"encoding/json"
	"fmt"
)

type EventKind string

// Inbound event kinds, delivered verbatim by the connection manager. The
// first four are transport lifecycle; the rest are chat pushes.
const (
	EventConnected     EventKind = "connect"
	EventDisconnected  EventKind = "disconnect"
	EventAuthenticated EventKind = "authenticated"
	EventError         EventKind = "error"

	EventNewMessage   EventKind = "new_message"
	EventMessageSent  EventKind = "message_sent"
	EventUserTyping   EventKind = "user_typing"
	EventMessagesRead EventKind = "messages_read"
	EventUserOnline   EventKind = "user_online"
)

// Outbound event names.
const (
	OutAuthenticate = "authenticate"
	OutSendMessage  = "send_message"
	OutTyping       = "typing"
	OutMarkRead     = "mark_read"
)

// Event is the tagged union handed to the session reducer. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind     EventKind
	Message  *Message // new_message, message_sent
	UserID   int64    // authenticated, user_typing, user_online
	IsTyping bool     // user_typing
	ReaderID int64    // messages_read
	Err      string   // error
}

// Outbound payloads.

type Authenticate struct {
	Token string `json:"token"`
}

type SendMessage struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Body       string `json:"body"`
}

type TypingSignal struct {
	SenderID   int64 `json:"sender_id"`
	ReceiverID int64 `json:"receiver_id"`
	IsTyping   bool  `json:"is_typing"`
}

type MarkRead struct {
	SenderID   int64 `json:"sender_id"`
	ReceiverID int64 `json:"receiver_id"`
}

type authenticatedPayload struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

type typingPayload struct {
	UserID   int64 `json:"user_id"`
	IsTyping bool  `json:"is_typing"`
}

type readPayload struct {
	ReaderID int64 `json:"reader_id"`
}

type onlinePayload struct {
	UserID int64 `json:"user_id"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// DecodeEvent maps a named server event and its raw data onto an Event. The
// payload is carried through untransformed; unknown names are an error so
// the transport can log and drop them.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	switch EventKind(name) {
	case EventAuthenticated:
		var p authenticatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return Event{Kind: EventAuthenticated, UserID: p.UserID}, nil
	case EventNewMessage, EventMessageSent:
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return Event{Kind: EventKind(name), Message: &m}, nil
	case EventUserTyping:
		var p typingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return Event{Kind: EventUserTyping, UserID: p.UserID, IsTyping: p.IsTyping}, nil
	case EventMessagesRead:
		var p readPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return Event{Kind: EventMessagesRead, ReaderID: p.ReaderID}, nil
	case EventUserOnline:
		var p onlinePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return Event{Kind: EventUserOnline, UserID: p.UserID}, nil
	case EventError:
		var p errorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return Event{Kind: EventError, Err: p.Message}, nil
	default:
		return Event{}, fmt.Errorf("unknown event %q", name)
	}
}
