package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNewMessage(t *testing.T) {
	data := json.RawMessage(`{
		"message_id": 17,
		"sender_id": 4,
		"sender_name": "Amira Hassan",
		"receiver_id": 9,
		"subject": "Chat",
		"body": "hello",
		"created_at": "2025-03-01T10:15:30.123456",
		"is_read": false
	}`)

	ev, err := DecodeEvent("new_message", data)
	require.NoError(t, err)
	require.Equal(t, EventNewMessage, ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, int64(17), ev.Message.ID)
	assert.Equal(t, int64(4), ev.Message.SenderID)
	assert.Equal(t, "hello", ev.Message.Body)
	assert.Equal(t, 2025, ev.Message.CreatedAt.Year())
}

func TestDecodeLifecycleAndSignals(t *testing.T) {
	ev, err := DecodeEvent("authenticated", json.RawMessage(`{"user_id": 3, "status": "connected"}`))
	require.NoError(t, err)
	assert.Equal(t, EventAuthenticated, ev.Kind)
	assert.Equal(t, int64(3), ev.UserID)

	ev, err = DecodeEvent("user_typing", json.RawMessage(`{"user_id": 42, "is_typing": true}`))
	require.NoError(t, err)
	assert.Equal(t, EventUserTyping, ev.Kind)
	assert.Equal(t, int64(42), ev.UserID)
	assert.True(t, ev.IsTyping)

	ev, err = DecodeEvent("messages_read", json.RawMessage(`{"reader_id": 42}`))
	require.NoError(t, err)
	assert.Equal(t, EventMessagesRead, ev.Kind)
	assert.Equal(t, int64(42), ev.ReaderID)

	ev, err = DecodeEvent("user_online", json.RawMessage(`{"user_id": 7}`))
	require.NoError(t, err)
	assert.Equal(t, EventUserOnline, ev.Kind)
	assert.Equal(t, int64(7), ev.UserID)

	ev, err = DecodeEvent("error", json.RawMessage(`{"message": "Invalid token"}`))
	require.NoError(t, err)
	assert.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "Invalid token", ev.Err)
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := DecodeEvent("balance_update", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestTimestampAcceptsServerFormats(t *testing.T) {
	cases := map[string]string{
		"rfc3339":        `"2025-03-01T10:15:30Z"`,
		"naive iso":      `"2025-03-01T10:15:30.123456"`,
		"naive no-frac":  `"2025-03-01T10:15:30"`,
		"http date":      `"Sat, 01 Mar 2025 10:15:30 GMT"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(raw), &ts))
			assert.Equal(t, time.March, ts.Month())
		})
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte("null"), &ts))
	assert.True(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestConversationSummaryDecode(t *testing.T) {
	raw := `{
		"other_user_id": 9,
		"other_user_name": "Fatima Noor ↔ Omar Said",
		"other_user_role": "Counsellor ↔ Student",
		"last_message": "see you then",
		"last_message_time": "2025-03-01T09:00:00",
		"unread_count": 2,
		"is_admin_view": true,
		"participant_ids": [7, 9]
	}`
	var c ConversationSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, int64(9), c.CounterpartID)
	assert.True(t, c.AdminView)
	assert.Equal(t, []int64{7, 9}, c.ParticipantIDs)
	assert.Equal(t, 2, c.UnreadCount)
}
