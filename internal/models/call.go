package models

import "time"

// Call statuses.
const (
	CallStatusMissed    = "missed"
	CallStatusDeclined  = "declined"
	CallStatusCompleted = "completed"
)

// Call is an after-the-fact audit record of a voice call. The signaling
// relay writes it best-effort and never blocks on it.
type Call struct {
	ID          string     `json:"id"` // ULID
	CallerID    string     `json:"callerId"`
	ReceiverID  string     `json:"receiverId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Status      string     `json:"status"`
	DurationSec int64      `json:"duration,omitempty"`
}
