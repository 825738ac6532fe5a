package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades HTTP requests into hub connections and dispatches
// inbound events.
type WSHandler struct {
	hub      *Hub
	relay    *Relay
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates the websocket entry point. allowedOrigins
// restricts upgrades; an empty list allows every origin (development).
func NewWSHandler(hub *Hub, relay *Relay, allowedOrigins []string, logger zerolog.Logger) *WSHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &WSHandler{
		hub:   hub,
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				return origins[r.Header.Get("Origin")]
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles the websocket upgrade and starts the pumps.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(uuid.New().String(), h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

// handleMessage dispatches one inbound envelope. Handlers are short and
// non-blocking; anything durable goes through HTTP, not the socket.
func (h *WSHandler) handleMessage(client *Client, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		h.logger.Debug().Err(err).Str("conn_id", client.ID).Msg("discarding malformed frame")
		return
	}

	switch env.Event {
	case EventJoin:
		userID, err := decodeJoin(env.Data)
		if err != nil {
			h.logger.Debug().Err(err).Str("conn_id", client.ID).Msg("invalid join payload")
			return
		}
		h.hub.Join(client, userID)

	case EventTyping, EventStopTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ToUserID == "" {
			return
		}
		// Relay only the sender identity; the target doesn't need its own id back.
		h.hub.EmitToUser(p.ToUserID, env.Event, TypingPayload{FromUserID: p.FromUserID})

	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICE, EventWebRTCEnd:
		h.relay.Handle(env.Event, env.Data)

	default:
		h.logger.Debug().Str("event", env.Event).Str("conn_id", client.ID).Msg("unknown event")
	}
}
