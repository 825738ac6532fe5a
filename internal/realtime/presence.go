package realtime

import (
	"sync"
	"time"
)

// Registry tracks which users currently have live connections. A user is
// online iff they have at least one. State is in-memory only; after a
// restart everyone is offline until they reconnect.
type Registry struct {
	mu    sync.Mutex
	users map[string]map[string]struct{} // userID -> set of connection IDs
	conns map[string]string              // connection ID -> userID
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]struct{}),
		conns: make(map[string]string),
	}
}

// Join records a connection under a user and reports whether this is the
// user's first active connection (the offline -> online transition).
// Re-joining an already tracked connection under a different user moves
// it, so a connection always belongs to at most one user.
func (r *Registry) Join(userID, connID string) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[connID]; ok && prev != userID {
		r.removeLocked(prev, connID)
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[connID] = struct{}{}
	r.conns[connID] = userID
	return len(set) == 1
}

// Leave removes a connection. When it was the user's last one, the user
// transitions offline and Leave returns their ID with a last-seen
// timestamp. Unknown connections are a no-op.
func (r *Registry) Leave(connID string) (userID string, lastSeen time.Time, offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.conns[connID]
	if !ok {
		return "", time.Time{}, false
	}
	delete(r.conns, connID)

	if r.removeLocked(userID, connID) {
		return userID, time.Now().UTC(), true
	}
	return userID, time.Time{}, false
}

// removeLocked deletes connID from userID's set and reports whether the
// set became empty. Caller holds r.mu.
func (r *Registry) removeLocked(userID, connID string) bool {
	set, ok := r.users[userID]
	if !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// Online reports whether a user has at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users[userID]) > 0
}

// Connections returns the connection IDs currently in a user's room.
func (r *Registry) Connections(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.users[userID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// OnlineCount returns the number of users currently online.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
