package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware resolves the caller's identity. Credential
// verification (sessions, tokens, password hashing) is owned by the
// upstream auth service, which forwards the verified user ID in the
// X-User-ID header; this middleware only checks that the ID is
// well-formed and refers to a real user.
type AuthMiddleware struct {
	db store.DataStore
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(db store.DataStore) *AuthMiddleware {
	return &AuthMiddleware{db: db}
}

// RequireUser rejects requests without a resolvable user identity.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idStr := r.Header.Get("X-User-ID")
		if idStr == "" {
			jsonError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid user ID format")
			return
		}

		user, err := m.db.GetUserByID(r.Context(), id)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "database error")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
