package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// and single-box fallback behind the same DataStore interface as
// PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatzilla.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatzilla.db"
	}

	// Ensure directory exists, except for in-memory databases
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if dbPath == ":memory:" {
		// a second pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		avatar TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		text TEXT DEFAULT '',
		image TEXT DEFAULT '',
		audio TEXT DEFAULT '',
		video TEXT DEFAULT '',
		duration_ms INTEGER DEFAULT 0,
		delivered_at DATETIME,
		read_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		caller_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		status TEXT NOT NULL,
		duration_sec INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(sender_id, receiver_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_receiver
		ON messages(receiver_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, avatar string) (*models.User, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, avatar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), name, avatar, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, avatar, created_at, updated_at
		FROM users WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&user.Name,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID = uuid.MustParse(idStr)
	return user, nil
}

// ListUsersExcept retrieves all users except the given one, newest first.
func (s *SQLiteStore) ListUsersExcept(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, avatar, created_at, updated_at
		FROM users
		WHERE id <> ?
		ORDER BY created_at DESC
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var idStr string
		err := rows.Scan(
			&idStr,
			&user.Name,
			&user.Avatar,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		user.ID = uuid.MustParse(idStr)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateMessage persists a message, assigning the ULID id and timestamps
// if not already set.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = msg.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, image, audio, video,
			duration_ms, delivered_at, read_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Image, msg.Audio, msg.Video,
		msg.DurationMs, msg.DeliveredAt, msg.ReadAt, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, receiver_id, text, image, audio, video,
			duration_ms, delivered_at, read_at, created_at, updated_at
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Text,
		&msg.Image,
		&msg.Audio,
		&msg.Video,
		&msg.DurationMs,
		&msg.DeliveredAt,
		&msg.ReadAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// MarkMessageRead sets read_at exactly once via a conditional update.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id string, readAt time.Time) (time.Time, bool, error) {
	readAt = readAt.UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET read_at = ?, updated_at = ?
		WHERE id = ? AND read_at IS NULL
	`, readAt, readAt, id)
	if err != nil {
		return time.Time{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, false, err
	}
	if affected > 0 {
		return readAt, true, nil
	}

	// Already read, or the message does not exist.
	var existing *time.Time
	err = s.db.QueryRowContext(ctx, `SELECT read_at FROM messages WHERE id = ?`, id).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, ErrNotFound
		}
		return time.Time{}, false, err
	}
	if existing == nil {
		// unreachable: read_at is never unset once written
		return time.Time{}, false, ErrNotFound
	}
	return *existing, false, nil
}

// ListConversation retrieves all messages between two users, ascending
// by creation time with the ULID id as tie-break.
func (s *SQLiteStore) ListConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, text, image, audio, video,
			duration_ms, delivered_at, read_at, created_at, updated_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`, userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Text,
			&msg.Image,
			&msg.Audio,
			&msg.Video,
			&msg.DurationMs,
			&msg.DeliveredAt,
			&msg.ReadAt,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateCall writes a call audit record.
func (s *SQLiteStore) CreateCall(ctx context.Context, call *models.Call) (*models.Call, error) {
	if call.ID == "" {
		call.ID = ulid.Make().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, caller_id, receiver_id, start_time, end_time, status, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, call.ID, call.CallerID, call.ReceiverID, call.StartTime.UTC(), call.EndTime, call.Status, call.DurationSec)
	if err != nil {
		return nil, err
	}
	return call, nil
}
