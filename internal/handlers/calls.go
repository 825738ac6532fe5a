package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/api/middleware"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
)

// LogCallRequest represents the call audit request body. The client
// reports the outcome after the call ends; the signaling relay itself
// keeps no call state.
type LogCallRequest struct {
	ReceiverID string     `json:"receiverId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime"`
	Status     string     `json:"status"`
	Duration   int64      `json:"duration"` // seconds
}

// LogCall records a completed/missed/declined call for history. This is
// an audit write, not part of call setup, and nothing in signaling
// depends on it.
func (h *Handler) LogCall(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req LogCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid receiver ID format")
		return
	}

	switch req.Status {
	case models.CallStatusMissed, models.CallStatusDeclined, models.CallStatusCompleted:
	default:
		h.Error(w, http.StatusBadRequest, "status must be missed, declined, or completed")
		return
	}

	start := req.StartTime
	if start.IsZero() {
		start = time.Now().UTC()
	}

	call, err := h.db.CreateCall(r.Context(), &models.Call{
		CallerID:    caller.ID.String(),
		ReceiverID:  receiverID.String(),
		StartTime:   start,
		EndTime:     req.EndTime,
		Status:      req.Status,
		DurationSec: req.Duration,
	})
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to record call")
		return
	}

	h.JSON(w, http.StatusCreated, call)
}
