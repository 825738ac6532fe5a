package models

import "time"

// Message represents a persisted direct message between two users.
//
// JSON field names are the external compatibility contract, including
// the historical "recieverId" spelling which existing clients depend on.
type Message struct {
	ID          string     `json:"id"` // ULID
	SenderID    string     `json:"senderId"`
	ReceiverID  string     `json:"recieverId"`
	Text        string     `json:"text,omitempty"`
	Image       string     `json:"image,omitempty"` // URL/ref, upload is external
	Audio       string     `json:"audio,omitempty"`
	Video       string     `json:"video,omitempty"`
	DurationMs  int64      `json:"durationMs,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Empty reports whether the message carries no payload at all.
// Empty messages are rejected before persistence.
func (m *Message) Empty() bool {
	return m.Text == "" && m.Image == "" && m.Audio == "" && m.Video == ""
}
