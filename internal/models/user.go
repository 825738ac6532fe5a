package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered chat user. Credentials live with the
// external auth collaborator; only the fields the chat core needs are
// stored here.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"` // URL/ref
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
