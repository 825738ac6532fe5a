package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and fetch", func(t *testing.T) {
		u, err := s.CreateUser(ctx, "alice", "https://cdn/alice.png")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Name)
		assert.NotEqual(t, uuid.Nil, u.ID)

		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "https://cdn/alice.png", got.Avatar)
	})

	t.Run("missing user is nil, not an error", func(t *testing.T) {
		got, err := s.GetUserByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list excludes the caller", func(t *testing.T) {
		bob, err := s.CreateUser(ctx, "bob", "")
		require.NoError(t, err)

		users, err := s.ListUsersExcept(ctx, bob.ID)
		require.NoError(t, err)
		for _, u := range users {
			assert.NotEqual(t, bob.ID, u.ID)
		}
		require.NotEmpty(t, users)
	})
}

func TestSQLiteMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns id and round-trips", func(t *testing.T) {
		s := newTestStore(t)
		now := time.Now().UTC()

		msg, err := s.CreateMessage(ctx, &models.Message{
			SenderID:    "alice",
			ReceiverID:  "bob",
			Text:        "hey",
			DeliveredAt: &now,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)

		got, err := s.GetMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "hey", got.Text)
		assert.Equal(t, "bob", got.ReceiverID)
		require.NotNil(t, got.DeliveredAt)
		assert.Nil(t, got.ReadAt)
	})

	t.Run("missing message is nil", func(t *testing.T) {
		s := newTestStore(t)
		got, err := s.GetMessage(ctx, ulid.Make().String())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("mark read is exactly-once", func(t *testing.T) {
		s := newTestStore(t)
		msg, err := s.CreateMessage(ctx, &models.Message{SenderID: "alice", ReceiverID: "bob", Text: "hey"})
		require.NoError(t, err)

		first := time.Now().UTC()
		readAt, updated, err := s.MarkMessageRead(ctx, msg.ID, first)
		require.NoError(t, err)
		assert.True(t, updated)
		assert.True(t, readAt.Equal(first))

		// second attempt keeps the original timestamp
		again, updated, err := s.MarkMessageRead(ctx, msg.ID, first.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, updated)
		assert.True(t, again.Equal(first))
	})

	t.Run("mark read on a missing message", func(t *testing.T) {
		s := newTestStore(t)
		_, _, err := s.MarkMessageRead(ctx, ulid.Make().String(), time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLiteConversation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	send := func(from, to, text string) {
		t.Helper()
		_, err := s.CreateMessage(ctx, &models.Message{SenderID: from, ReceiverID: to, Text: text})
		require.NoError(t, err)
	}

	send("alice", "bob", "one")
	send("bob", "alice", "two")
	send("alice", "bob", "three")
	send("alice", "carol", "noise")

	t.Run("ascending and pair-symmetric", func(t *testing.T) {
		forward, err := s.ListConversation(ctx, "alice", "bob")
		require.NoError(t, err)
		require.Len(t, forward, 3)
		assert.Equal(t, []string{"one", "two", "three"}, []string{forward[0].Text, forward[1].Text, forward[2].Text})

		reverse, err := s.ListConversation(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, forward, reverse)
	})

	t.Run("empty conversation", func(t *testing.T) {
		msgs, err := s.ListConversation(ctx, "bob", "carol")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestSQLiteCalls(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Now().UTC().Add(-time.Minute)
	end := time.Now().UTC()
	call, err := s.CreateCall(ctx, &models.Call{
		CallerID:    "alice",
		ReceiverID:  "bob",
		StartTime:   start,
		EndTime:     &end,
		Status:      models.CallStatusCompleted,
		DurationSec: 60,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, call.ID)
}
