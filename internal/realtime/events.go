package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

// Wire event names. These are the binding contract with clients and
// must not be renamed.
const (
	EventJoin           = "join"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventReceiveMessage = "receiveMessage"
	EventMessageRead    = "message:read"
	EventPresenceUpdate = "presence:update"

	EventWebRTCOffer  = "webrtc:offer"
	EventWebRTCAnswer = "webrtc:answer"
	EventWebRTCICE    = "webrtc:ice"
	EventWebRTCEnd    = "webrtc:end"
)

// Envelope is the frame every websocket message travels in, both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TypingPayload is the inbound shape of typing / stopTyping events.
type TypingPayload struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId,omitempty"`
}

// PresencePayload is broadcast to every connection on an online/offline
// transition. LastSeen is unix milliseconds, present only when going
// offline.
type PresencePayload struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}

// ReadReceiptPayload is pushed to the original sender's room when the
// receiver marks a message read.
type ReadReceiptPayload struct {
	MessageID string    `json:"messageId"`
	ReadAt    time.Time `json:"readAt"`
}

// SignalPayload carries call-setup messages. Payload is opaque to the
// server and forwarded verbatim.
type SignalPayload struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	UserID string `json:"userId"`
}

var errEmptyUserID = errors.New("realtime: join with empty userId")

// decodeJoin accepts either a bare JSON string (the historical wire
// contract) or an object {"userId": ...}.
func decodeJoin(data json.RawMessage) (string, error) {
	var userID string
	if err := json.Unmarshal(data, &userID); err == nil {
		if userID == "" {
			return "", errEmptyUserID
		}
		return userID, nil
	}

	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	if p.UserID == "" {
		return "", errEmptyUserID
	}
	return p.UserID, nil
}
