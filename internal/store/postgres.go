package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, name, avatar string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, avatar)
		VALUES ($1, $2, $3)
		RETURNING id, name, avatar, created_at, updated_at
	`, uuid.New(), name, avatar).Scan(
		&user.ID,
		&user.Name,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, avatar, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Name,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsersExcept retrieves all users except the given one, newest first.
func (s *PostgresStore) ListUsersExcept(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, avatar, created_at, updated_at
		FROM users
		WHERE id <> $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Avatar,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateMessage persists a message. The ID and timestamps are assigned
// here if not already set; the ULID doubles as a tie-break for messages
// created at the same instant.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = msg.CreatedAt

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, image, audio, video,
			duration_ms, delivered_at, read_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Image, msg.Audio, msg.Video,
		msg.DurationMs, msg.DeliveredAt, msg.ReadAt, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, sender_id, receiver_id, text, image, audio, video,
			duration_ms, delivered_at, read_at, created_at, updated_at
		FROM messages WHERE id = $1
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// MarkMessageRead sets read_at exactly once. The conditional UPDATE is
// what makes concurrent read-marks on the same message safe.
func (s *PostgresStore) MarkMessageRead(ctx context.Context, id string, readAt time.Time) (time.Time, bool, error) {
	var applied time.Time
	err := s.pool.QueryRow(ctx, `
		UPDATE messages
		SET read_at = $2, updated_at = $2
		WHERE id = $1 AND read_at IS NULL
		RETURNING read_at
	`, id, readAt.UTC()).Scan(&applied)
	if err == nil {
		return applied, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, err
	}

	// Already read, or the message does not exist.
	var existing *time.Time
	err = s.pool.QueryRow(ctx, `SELECT read_at FROM messages WHERE id = $1`, id).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) ListConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, text, image, audio, video,
			duration_ms, delivered_at, read_at, created_at, updated_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, userA, userB)
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
func (s *PostgresStore) CreateCall(ctx context.Context, call *models.Call) (*models.Call, error) {
	if call.ID == "" {
		call.ID = ulid.Make().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calls (id, caller_id, receiver_id, start_time, end_time, status, duration_sec)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, call.ID, call.CallerID, call.ReceiverID, call.StartTime, call.EndTime, call.Status, call.DurationSec)
	if err != nil {
		return nil, err
	}
	return call, nil
}
