// Package chatzilla provides a client for the Chat-ZILLA chat server.
package chatzilla

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a Chat-ZILLA API client. UserID identifies the caller on
// authenticated endpoints; it is set by Register or can be assigned
// directly for an existing user.
type Client struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request. Authenticated requests carry the
// caller's user ID in the X-User-ID header.
func (c *Client) doRequest(method, path string, body []byte, authed bool) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-User-ID", c.UserID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chatzilla error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// User is a user summary as returned by the API.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Message is a persisted direct message. The "recieverId" spelling is
// the server's wire contract.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"senderId"`
	ReceiverID  string     `json:"recieverId"`
	Text        string     `json:"text,omitempty"`
	Image       string     `json:"image,omitempty"`
	Audio       string     `json:"audio,omitempty"`
	Video       string     `json:"video,omitempty"`
	DurationMs  int64      `json:"durationMs,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Register creates a user and adopts its ID for subsequent requests.
func (c *Client) Register(name, avatar string) (*User, error) {
	body, _ := json.Marshal(RegisterRequest{Name: name, Avatar: avatar})
	respBody, err := c.doRequest("POST", "/register", body, false)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, err
	}
	c.UserID = user.ID
	return &user, nil
}

// ListUsers lists every user except the caller.
func (c *Client) ListUsers() ([]User, error) {
	respBody, err := c.doRequest("GET", "/users", nil, true)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := json.Unmarshal(respBody, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SendMessageRequest is the request body for sending a message. At
// least one content field must be set.
type SendMessageRequest struct {
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Video      string `json:"video,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// SendMessage sends a direct message to another user.
func (c *Client) SendMessage(toUserID string, req SendMessageRequest) (*Message, error) {
	body, _ := json.Marshal(req)
	respBody, err := c.doRequest("POST", "/messages/"+toUserID, body, true)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkReadResponse is the response from marking a message read.
type MarkReadResponse struct {
	OK        bool       `json:"ok"`
	MessageID string     `json:"messageId"`
	ReadAt    *time.Time `json:"readAt"`
}

// MarkRead marks a received message as read. Repeating the call is
// harmless; the server keeps the first read timestamp.
func (c *Client) MarkRead(messageID string) (*MarkReadResponse, error) {
	respBody, err := c.doRequest("POST", "/messages/"+messageID+"/read", nil, true)
	if err != nil {
		return nil, err
	}

	var resp MarkReadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conversation retrieves the full message history with a peer, oldest
// first.
func (c *Client) Conversation(peerID string) ([]Message, error) {
	respBody, err := c.doRequest("GET", "/conversations/"+peerID, nil, true)
	if err != nil {
		return nil, err
	}

	var msgs []Message
	if err := json.Unmarshal(respBody, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// LogCallRequest is the request body for recording a call outcome.
type LogCallRequest struct {
	ReceiverID string     `json:"receiverId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Status     string     `json:"status"` // "missed", "declined", "completed"
	Duration   int64      `json:"duration,omitempty"`
}

// Call is a recorded call audit row.
type Call struct {
	ID         string    `json:"id"`
	CallerID   string    `json:"callerId"`
	ReceiverID string    `json:"receiverId"`
	StartTime  time.Time `json:"startTime"`
	Status     string    `json:"status"`
}

// LogCall records the outcome of a call after it ends.
func (c *Client) LogCall(req LogCallRequest) (*Call, error) {
	body, _ := json.Marshal(req)
	respBody, err := c.doRequest("POST", "/calls", body, true)
	if err != nil {
		return nil, err
	}

	var call Call
	if err := json.Unmarshal(respBody, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil, false)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
