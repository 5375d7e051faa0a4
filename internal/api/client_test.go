package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:         srv.URL,
		Token:           "tok-123",
		Timeout:         2 * time.Second,
		RetryMaxElapsed: 2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/conversations", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"conversations": [
			{"other_user_id": 42, "other_user_name": "Lina Park",
			 "other_user_role": "Counsellor", "last_message": "ok!",
			 "last_message_time": "2025-03-01T09:00:00", "unread_count": 3},
			{"other_user_id": 9, "other_user_name": "A ↔ B",
			 "is_admin_view": true, "participant_ids": [7, 9],
			 "last_message": null, "last_message_time": null, "unread_count": 0}
		]}`)
	}))
	defer srv.Close()

	convs, err := newTestClient(t, srv).Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, int64(42), convs[0].CounterpartID)
	assert.Equal(t, 3, convs[0].UnreadCount)
	assert.Nil(t, convs[0].ParticipantIDs)
	assert.Equal(t, []int64{7, 9}, convs[1].ParticipantIDs)
	assert.True(t, convs[1].LastMessageTime.IsZero())
}

func TestMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/messages/42", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("with"))
		fmt.Fprint(w, `{"messages": [
			{"message_id": 1, "sender_id": 42, "receiver_id": 1, "subject": "Chat",
			 "body": "hi", "is_read": true, "created_at": "2025-03-01T09:00:00.000001"},
			{"message_id": 2, "sender_id": 1, "receiver_id": 42,
			 "body": "hello", "is_read": false, "created_at": "2025-03-01T09:01:00"}
		]}`)
	}))
	defer srv.Close()

	msgs, err := newTestClient(t, srv).Messages(context.Background(), 42, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.True(t, msgs[0].IsRead)
	assert.Equal(t, "hello", msgs[1].Body)
}

func TestMessagesMonitoringNamesSecondParticipant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/messages/9", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("with"))
		fmt.Fprint(w, `{"messages": []}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Messages(context.Background(), 9, 7)
	require.NoError(t, err)
}

func TestUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/users", r.URL.Path)
		fmt.Fprint(w, `{"users": [
			{"user_id": 5, "full_name": "Noor Ahmed", "email": "noor@youruni.example", "role_name": "Counsellor"}
		]}`)
	}))
	defer srv.Close()

	users, err := newTestClient(t, srv).Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Noor Ahmed", users[0].FullName)
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Conversations(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"conversations": []}`)
	}))
	defer srv.Close()

	convs, err := newTestClient(t, srv).Conversations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, convs)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}
