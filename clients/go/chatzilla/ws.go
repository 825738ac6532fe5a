package chatzilla

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one realtime event received from the server.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Presence is the payload of presence:update events. LastSeen is unix
// milliseconds, set only when Online is false.
type Presence struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}

// ReadReceipt is the payload of message:read events.
type ReadReceipt struct {
	MessageID string `json:"messageId"`
}

// Socket is a live realtime connection, already joined as the client's
// user. Events delivers everything the server pushes; it is closed when
// the connection drops.
type Socket struct {
	Events <-chan Event

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Connect dials the server's websocket endpoint and announces the
// client's identity with a join event. The caller owns the returned
// socket and must Close it.
func (c *Client) Connect() (*Socket, error) {
	if c.UserID == "" {
		return nil, fmt.Errorf("chatzilla: connect requires a user ID")
	}

	wsURL := strings.Replace(c.BaseURL, "http", "ws", 1) + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("chatzilla: websocket dial failed (%s): %w", resp.Status, err)
		}
		return nil, err
	}

	events := make(chan Event, 64)
	s := &Socket{Events: events, conn: conn}

	if err := s.emit("join", c.UserID); err != nil {
		conn.Close()
		return nil, err
	}

	go func() {
		defer close(events)
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			events <- ev
		}
	}()

	return s, nil
}

// Close shuts the connection down.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(Event{Name: event, Data: data})
}

type typingPayload struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// Typing tells the target user this client started typing.
func (s *Socket) Typing(fromUserID, toUserID string) error {
	return s.emit("typing", typingPayload{FromUserID: fromUserID, ToUserID: toUserID})
}

// StopTyping tells the target user this client stopped typing.
func (s *Socket) StopTyping(fromUserID, toUserID string) error {
	return s.emit("stopTyping", typingPayload{FromUserID: fromUserID, ToUserID: toUserID})
}

// Signal is the shape of call-setup messages in both directions.
type Signal struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SendSignal forwards a call-setup message (webrtc:offer, webrtc:answer,
// webrtc:ice, webrtc:end) to the target user. The payload is opaque to
// the server.
func (s *Socket) SendSignal(event string, sig Signal) error {
	return s.emit(event, sig)
}
