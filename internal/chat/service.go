// Package chat implements the messaging service: validation,
// persistence, and best-effort realtime delivery of direct messages.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/metrics"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/realtime"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/store"
)

// Service errors, mapped to HTTP statuses by the handlers.
var (
	ErrEmptyMessage = errors.New("chat: message has no content")
	ErrNotFound     = errors.New("chat: message not found")
	ErrForbidden    = errors.New("chat: only the receiver may mark a message read")
)

// Notifier is the slice of the realtime hub the service needs. Pushes
// through it are best-effort: a failure is logged and counted, never
// surfaced to the caller, because the persisted message is the source
// of truth.
type Notifier interface {
	EmitToUser(userID, event string, payload any) error
}

// SendInput is the payload of a new message. At least one content field
// must be set.
type SendInput struct {
	Text       string `json:"text"`
	Image      string `json:"image"`
	Audio      string `json:"audio"`
	Video      string `json:"video"`
	DurationMs int64  `json:"durationMs"`
}

// Service validates and persists messages and triggers realtime
// delivery and read-receipt propagation.
type Service struct {
	store    store.DataStore
	notifier Notifier
	logger   zerolog.Logger
}

// NewService wires the messaging service. Both dependencies are
// required; the hub exists before the server starts serving, so there
// is no "not initialized" runtime state to check for.
func NewService(ds store.DataStore, n Notifier, logger zerolog.Logger) *Service {
	return &Service{store: ds, notifier: n, logger: logger}
}

// Send persists a message with deliveredAt set to now, then pushes it
// to the receiver's room asynchronously. The returned message is the
// persisted record; callers use it to update their own view.
func (s *Service) Send(ctx context.Context, senderID, receiverID string, in SendInput) (*models.Message, error) {
	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       in.Text,
		Image:      in.Image,
		Audio:      in.Audio,
		Video:      in.Video,
		DurationMs: in.DurationMs,
	}
	if msg.Empty() {
		return nil, ErrEmptyMessage
	}

	now := time.Now().UTC()
	msg.DeliveredAt = &now

	persisted, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	go s.push(receiverID, realtime.EventReceiveMessage, persisted)

	return persisted, nil
}

// MarkRead sets readAt exactly once, only for the receiver. Marking an
// already-read message is a no-op that returns the original readAt. On
// the first transition the original sender's room gets a message:read
// push.
func (s *Service) MarkRead(ctx context.Context, messageID, requestingUserID string) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	if msg.ReceiverID != requestingUserID {
		return nil, ErrForbidden
	}
	if msg.ReadAt != nil {
		return msg, nil
	}

	readAt, updated, err := s.store.MarkMessageRead(ctx, messageID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	msg.ReadAt = &readAt

	if updated {
		metrics.ReadReceipts.Inc()
		go s.push(msg.SenderID, realtime.EventMessageRead, realtime.ReadReceiptPayload{
			MessageID: msg.ID,
			ReadAt:    readAt,
		})
	}

	return msg, nil
}

// ListConversation returns every message between the two users,
// ascending by creation time. The pair is unordered. No pagination:
// callers fetch the full history, which is fine at this product's
// scale.
func (s *Service) ListConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	return s.store.ListConversation(ctx, userA, userB)
}

func (s *Service) push(userID, event string, payload any) {
	if err := s.notifier.EmitToUser(userID, event, payload); err != nil {
		metrics.PushFailures.WithLabelValues(event).Inc()
		s.logger.Warn().Err(err).Str("event", event).Str("user_id", userID).Msg("realtime push failed")
	}
}
