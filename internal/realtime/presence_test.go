package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJoinLeave(t *testing.T) {
	t.Run("first connection transitions online", func(t *testing.T) {
		r := NewRegistry()

		assert.False(t, r.Online("alice"))
		assert.True(t, r.Join("alice", "c1"))
		assert.True(t, r.Online("alice"))

		// second device is not a transition
		assert.False(t, r.Join("alice", "c2"))
		assert.ElementsMatch(t, []string{"c1", "c2"}, r.Connections("alice"))
	})

	t.Run("offline only after last connection leaves", func(t *testing.T) {
		r := NewRegistry()
		joinedAt := time.Now()
		r.Join("alice", "c1")
		r.Join("alice", "c2")

		userID, _, offline := r.Leave("c1")
		assert.Equal(t, "alice", userID)
		assert.False(t, offline, "still online via c2")
		assert.True(t, r.Online("alice"))

		userID, lastSeen, offline := r.Leave("c2")
		assert.Equal(t, "alice", userID)
		require.True(t, offline)
		assert.False(t, r.Online("alice"))
		assert.False(t, lastSeen.Before(joinedAt), "last seen must be at or after join time")
	})

	t.Run("unknown connection is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.Join("alice", "c1")

		userID, _, offline := r.Leave("nope")
		assert.Empty(t, userID)
		assert.False(t, offline)
		assert.True(t, r.Online("alice"))
	})

	t.Run("rejoining under a new user moves the connection", func(t *testing.T) {
		r := NewRegistry()
		r.Join("alice", "c1")
		assert.True(t, r.Join("bob", "c1"))

		assert.False(t, r.Online("alice"))
		assert.True(t, r.Online("bob"))
	})

	t.Run("online count tracks distinct users", func(t *testing.T) {
		r := NewRegistry()
		r.Join("alice", "c1")
		r.Join("alice", "c2")
		r.Join("bob", "c3")
		assert.Equal(t, 2, r.OnlineCount())

		r.Leave("c3")
		assert.Equal(t, 1, r.OnlineCount())
	})
}
