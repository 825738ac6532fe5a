package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/api/middleware"
)

// RegisterRequest represents the registration request body. Credentials
// are handled by the external auth service; this only creates the chat
// profile row.
type RegisterRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Register handles user registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := h.db.CreateUser(r.Context(), name, req.Avatar)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.JSON(w, http.StatusCreated, UserResponse{
		ID:     user.ID.String(),
		Name:   user.Name,
		Avatar: user.Avatar,
	})
}

// ListUsers returns every user except the caller, for the conversation
// sidebar.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	users, err := h.db.ListUsersExcept(r.Context(), caller.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserResponse{
			ID:     u.ID.String(),
			Name:   u.Name,
			Avatar: u.Avatar,
		})
	}

	h.JSON(w, http.StatusOK, resp)
}
