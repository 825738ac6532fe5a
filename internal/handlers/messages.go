package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/api/middleware"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/chat"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
)

// MarkReadResponse represents the mark-read response.
type MarkReadResponse struct {
	OK        bool       `json:"ok"`
	MessageID string     `json:"messageId"`
	ReadAt    *time.Time `json:"readAt"`
}

// SendMessage handles sending a direct message to the user named in the
// URL. The message is persisted first; realtime delivery is best-effort
// and never fails this request.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetUserFromContext(r.Context())
	if sender == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	receiverID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid recipient ID format")
		return
	}

	receiver, err := h.db.GetUserByID(r.Context(), receiverID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if receiver == nil {
		h.Error(w, http.StatusNotFound, "recipient not found")
		return
	}

	var in chat.SendInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.chat.Send(r.Context(), sender.ID.String(), receiverID.String(), in)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			h.Error(w, http.StatusBadRequest, "nothing to send")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// MarkRead marks a message as read by the caller. Only the receiver may
// do this; repeating it returns the original readAt unchanged.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	messageID := chi.URLParam(r, "id")

	msg, err := h.chat.MarkRead(r.Context(), messageID, caller.ID.String())
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNotFound):
			h.Error(w, http.StatusNotFound, "message not found")
		case errors.Is(err, chat.ErrForbidden):
			h.Error(w, http.StatusForbidden, "only the receiver can mark a message read")
		default:
			h.Error(w, http.StatusInternalServerError, "failed to mark message read")
		}
		return
	}

	h.JSON(w, http.StatusOK, MarkReadResponse{
		OK:        true,
		MessageID: msg.ID,
		ReadAt:    msg.ReadAt,
	})
}

// GetConversation returns the full message history between the caller
// and the peer named in the URL, oldest first.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	peerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid peer ID format")
		return
	}

	messages, err := h.chat.ListConversation(r.Context(), caller.ID.String(), peerID.String())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, messages)
}
