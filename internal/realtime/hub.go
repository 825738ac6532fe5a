package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/metrics"
)

// frame is a marshaled envelope queued for delivery. An empty target
// means every connection; otherwise it names a user room.
type frame struct {
	target  string
	payload []byte
}

// Hub accepts websocket connections, binds each to a per-user room on
// an explicit join, and routes events. It owns the presence registry.
// The hub is constructed once in main and injected into everything that
// emits; there is no package-level instance.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client // connection ID -> client
	presence *Registry

	register   chan *Client
	unregister chan *Client
	outbound   chan frame

	logger zerolog.Logger
	done   chan struct{}
}

// NewHub creates a hub with an empty presence registry. Run must be
// started before connections are accepted.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		presence:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan frame, 256),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Presence exposes the registry for handlers and tests.
func (h *Hub) Presence() *Registry {
	return h.presence
}

// Run is the hub's event loop. Registration, unregistration, and
// delivery all happen here; the mutex only covers the clients map so
// that accessors outside the loop stay safe.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.Send)
				if c.Conn != nil {
					c.Conn.Close()
				}
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			h.mu.Unlock()
			metrics.WSConnections.Inc()
			h.logger.Debug().Str("conn_id", c.ID).Msg("connection registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.ID]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, c.ID)
			close(c.Send)
			h.mu.Unlock()
			metrics.WSConnections.Dec()

			userID, lastSeen, offline := h.presence.Leave(c.ID)
			h.logger.Debug().Str("conn_id", c.ID).Str("user_id", userID).Msg("connection unregistered")
			if offline {
				metrics.PresenceTransitions.WithLabelValues("offline").Inc()
				metrics.OnlineUsers.Set(float64(h.presence.OnlineCount()))
				// Frames already queued (the user's own online transition
				// among them) must reach observers before the offline
				// event, or they end up believing the user is still
				// online after the last disconnect.
				h.drainOutbound()
				h.deliverAll(mustEnvelope(EventPresenceUpdate, PresencePayload{
					UserID:   userID,
					Online:   false,
					LastSeen: lastSeen.UnixMilli(),
				}))
			}

		case f := <-h.outbound:
			h.dispatch(f)
		}
	}
}

// dispatch delivers one queued frame.
func (h *Hub) dispatch(f frame) {
	if f.target == "" {
		h.deliverAll(f.payload)
	} else {
		h.deliverToUser(f.target, f.payload)
	}
}

// drainOutbound flushes every frame already queued, so a delivery the
// loop emits directly cannot overtake them.
func (h *Hub) drainOutbound() {
	for {
		select {
		case f := <-h.outbound:
			h.dispatch(f)
		default:
			return
		}
	}
}

// Shutdown stops the event loop and closes every connection.
func (h *Hub) Shutdown() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Register hands a new connection to the event loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a connection; triggered by the transport on
// disconnect or by the loop on a stuck send buffer.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join binds a connection to the user's room and, on the user's first
// connection, broadcasts the online transition to everyone.
func (h *Hub) Join(c *Client, userID string) {
	first := h.presence.Join(userID, c.ID)
	c.UserID = userID
	h.logger.Info().Str("user_id", userID).Str("conn_id", c.ID).Msg("user joined room")

	if first {
		metrics.PresenceTransitions.WithLabelValues("online").Inc()
		h.Broadcast(EventPresenceUpdate, PresencePayload{UserID: userID, Online: true})
	}
	metrics.OnlineUsers.Set(float64(h.presence.OnlineCount()))
}

// EmitToUser pushes an event to every connection in a user's room. A
// user with no connections is a silent no-op: delivery is best-effort
// and the durable write, where there is one, is the source of truth.
func (h *Hub) EmitToUser(userID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.RelayRaw(userID, event, data)
}

// RelayRaw is EmitToUser for already-encoded payloads; the signaling
// relay uses it to forward data verbatim.
func (h *Hub) RelayRaw(userID, event string, data json.RawMessage) error {
	env, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.outbound <- frame{target: userID, payload: env}:
		return nil
	case <-h.done:
		return nil
	}
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.outbound <- frame{payload: env}:
		return nil
	case <-h.done:
		return nil
	}
}

func (h *Hub) deliverAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.send(c, payload)
	}
}

func (h *Hub) deliverToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, connID := range h.presence.Connections(userID) {
		if c, ok := h.clients[connID]; ok {
			h.send(c, payload)
		}
	}
}

// ConnectedCount returns the number of open connections.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// send enqueues without blocking; a full buffer means a stuck consumer,
// which the transport's own keep-alive will eventually reap. Only the
// connection ID is logged: UserID belongs to the read pump's goroutine.
func (h *Hub) send(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		h.logger.Warn().Str("conn_id", c.ID).Msg("send buffer full, dropping connection")
		go h.Unregister(c)
	}
}

func mustEnvelope(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	env, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		panic(err)
	}
	return env
}
