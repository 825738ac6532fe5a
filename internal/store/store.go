package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
)

// ErrNotFound is returned by mutating operations that target a row
// which does not exist. Lookups return (nil, nil) for missing rows.
var ErrNotFound = errors.New("store: not found")

// DataStore defines the interface for persistent storage of users,
// messages, and call audit records. Both PostgresStore and SQLiteStore
// implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, name, avatar string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsersExcept(ctx context.Context, id uuid.UUID) ([]models.User, error)

	// Message operations
	CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	// MarkMessageRead sets read_at exactly once. It returns the effective
	// read timestamp and whether this call performed the transition; a
	// message that is already read keeps its original read_at.
	MarkMessageRead(ctx context.Context, id string, readAt time.Time) (time.Time, bool, error)
	ListConversation(ctx context.Context, userA, userB string) ([]models.Message, error)

	// Call audit operations
	CreateCall(ctx context.Context, call *models.Call) (*models.Call, error)
}
