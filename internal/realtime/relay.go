package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/metrics"
)

// Relay forwards call-setup messages between two named rooms. It keeps
// no session state: which pair is "in a call" is owned entirely by the
// endpoints, and a message to an offline target is dropped without an
// error. The caller detects a call that never connected by timeout.
type Relay struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewRelay creates a signaling relay emitting through the given hub.
func NewRelay(hub *Hub, logger zerolog.Logger) *Relay {
	return &Relay{hub: hub, logger: logger}
}

// Handle forwards one signaling event verbatim to the target's room.
// Only the routing fields are decoded; the payload stays opaque.
func (r *Relay) Handle(event string, data json.RawMessage) {
	var sig SignalPayload
	if err := json.Unmarshal(data, &sig); err != nil {
		r.logger.Debug().Err(err).Str("event", event).Msg("discarding malformed signal")
		return
	}
	if sig.ToUserID == "" {
		return
	}

	metrics.SignalsRelayed.WithLabelValues(kindOf(event)).Inc()

	if err := r.hub.RelayRaw(sig.ToUserID, event, data); err != nil {
		r.logger.Warn().Err(err).Str("event", event).Str("to", sig.ToUserID).Msg("signal relay failed")
	}
}

func kindOf(event string) string {
	switch event {
	case EventWebRTCOffer:
		return "offer"
	case EventWebRTCAnswer:
		return "answer"
	case EventWebRTCICE:
		return "ice"
	case EventWebRTCEnd:
		return "end"
	}
	return "unknown"
}
