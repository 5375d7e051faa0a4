// Package chat holds the client-side chat core: wire models, the event
// contract, transcript and presence state, and the session controller that
// reconciles REST history with pushed events.
package chat

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp accepts the server's timestamp wire formats. History rows come
// back as naive ISO 8601 (no zone), socket payloads as RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"Mon, 02 Jan 2006 15:04:05 GMT",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}

// Message is a single chat message. The id is server-assigned and is the
// stable sort key; is_read is the only field that ever changes, and only
// from false to true.
type Message struct {
	ID          int64     `json:"message_id"`
	SenderID    int64     `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	SenderEmail string    `json:"sender_email,omitempty"`
	ReceiverID  int64     `json:"receiver_id"`
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   Timestamp `json:"created_at"`
}

// ConversationSummary is one sidebar row. ParticipantIDs is non-nil only
// when the server presents a conversation the viewer is merely observing;
// for a privileged viewer who is themself a party it stays nil.
type ConversationSummary struct {
	CounterpartID    int64     `json:"other_user_id"`
	CounterpartName  string    `json:"other_user_name"`
	CounterpartEmail string    `json:"other_user_email"`
	CounterpartRole  string    `json:"other_user_role"`
	LastMessage      string    `json:"last_message"`
	LastMessageTime  Timestamp `json:"last_message_time"`
	UnreadCount      int       `json:"unread_count"`
	AdminView        bool      `json:"is_admin_view"`
	ParticipantIDs   []int64   `json:"participant_ids"`
}

// UserSummary is a directory entry for starting a new conversation.
type UserSummary struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
}

// Viewer is the identity of the logged-in user, read once at startup from
// the external session store.
type Viewer struct {
	UserID   int64
	FullName string
	Role     string
}
