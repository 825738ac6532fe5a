package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/api"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/chat"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/models"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/realtime"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/store"
)

type testEnv struct {
	router http.Handler
	db     *store.SQLiteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)

	hub := realtime.NewHub(zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	chatSvc := chat.NewService(db, hub, zerolog.Nop())
	relay := realtime.NewRelay(hub, zerolog.Nop())
	ws := realtime.NewWSHandler(hub, relay, nil, zerolog.Nop())

	router := api.NewRouter(api.RouterConfig{
		Logger: zerolog.Nop(),
		DB:     db,
		Chat:   chatSvc,
		WS:     ws,
	})

	return &testEnv{router: router, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, name string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/register", "", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	require.NotEmpty(t, u.ID)
	return u.ID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creates a profile", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/register", "", map[string]string{"name": "  alice  ", "avatar": "https://cdn/a.png"})
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "alice", body["name"])
		assert.NotEmpty(t, body["id"])
	})

	t.Run("rejects blank name", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/register", "", map[string]string{"name": "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte("{nope")))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing header", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed user id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/users", "definitely-not-a-uuid", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/users", uuid.New().String(), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")

	rec := env.do(t, http.MethodGet, "/users", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[[]map[string]string](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0]["name"])
}

func TestMessagingFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	var messageID string

	t.Run("send persists with delivery timestamp", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/"+bob, alice, map[string]any{"text": "hey bob"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		msg := decodeBody[models.Message](t, rec)
		messageID = msg.ID
		assert.Equal(t, alice, msg.SenderID)
		assert.Equal(t, bob, msg.ReceiverID)
		assert.Equal(t, "hey bob", msg.Text)
		assert.NotNil(t, msg.DeliveredAt)
		assert.Nil(t, msg.ReadAt)

		// the historical receiver field spelling is part of the contract
		assert.Contains(t, rec.Body.String(), `"recieverId"`)
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/"+bob, alice, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/"+uuid.New().String(), alice, map[string]any{"text": "hi"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed recipient id", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/nope", alice, map[string]any{"text": "hi"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sender cannot mark read", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/"+messageID+"/read", alice, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("receiver marks read", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/"+messageID+"/read", bob, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, messageID, body["messageId"])
		assert.NotEmpty(t, body["readAt"])
	})

	t.Run("marking read twice keeps the first timestamp", func(t *testing.T) {
		first := env.do(t, http.MethodPost, "/messages/"+messageID+"/read", bob, nil)
		require.Equal(t, http.StatusOK, first.Code)
		firstBody := decodeBody[map[string]any](t, first)

		second := env.do(t, http.MethodPost, "/messages/"+messageID+"/read", bob, nil)
		require.Equal(t, http.StatusOK, second.Code)
		secondBody := decodeBody[map[string]any](t, second)

		assert.Equal(t, firstBody["readAt"], secondBody["readAt"])
	})

	t.Run("mark read on unknown message", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/messages/01ARZ3NDEKTSV4RRFFQ69G5FAV/read", bob, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConversation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	send := func(from, to, text string) {
		t.Helper()
		rec := env.do(t, http.MethodPost, "/messages/"+to, from, map[string]any{"text": text})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	send(alice, bob, "one")
	send(bob, alice, "two")
	send(alice, carol, "noise")

	t.Run("history is symmetric and ordered", func(t *testing.T) {
		for _, viewer := range []struct{ caller, peer string }{{alice, bob}, {bob, alice}} {
			rec := env.do(t, http.MethodGet, "/conversations/"+viewer.peer, viewer.caller, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			msgs := decodeBody[[]models.Message](t, rec)
			require.Len(t, msgs, 2)
			assert.Equal(t, "one", msgs[0].Text)
			assert.Equal(t, "two", msgs[1].Text)
		}
	})

	t.Run("empty history is an empty array, not null", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/conversations/"+carol, bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})
}

func TestLogCall(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	t.Run("records a completed call", func(t *testing.T) {
		end := time.Now().UTC()
		rec := env.do(t, http.MethodPost, "/calls", alice, map[string]any{
			"receiverId": bob,
			"startTime":  end.Add(-time.Minute).Format(time.RFC3339),
			"endTime":    end.Format(time.RFC3339),
			"status":     "completed",
			"duration":   60,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		call := decodeBody[models.Call](t, rec)
		assert.Equal(t, alice, call.CallerID)
		assert.Equal(t, models.CallStatusCompleted, call.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/calls", alice, map[string]any{
			"receiverId": bob,
			"status":     "vanished",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t)

	t.Run("health", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("root", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Chat-ZILLA")
	})

	t.Run("metrics endpoint is exposed", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "chatzilla_")
	})
}

// brokenStore simulates a database whose connection has died.
type brokenStore struct {
	store.DataStore
}

func (brokenStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealthDegraded(t *testing.T) {
	db, err := store.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)

	hub := realtime.NewHub(zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	router := api.NewRouter(api.RouterConfig{
		Logger: zerolog.Nop(),
		DB:     brokenStore{db},
		Chat:   chat.NewService(db, hub, zerolog.Nop()),
		WS:     realtime.NewWSHandler(hub, realtime.NewRelay(hub, zerolog.Nop()), nil, zerolog.Nop()),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "fail", body.Checks["database"].Status)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestOversizedBody(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	big := bytes.Repeat([]byte("a"), 70*1024)
	payload := fmt.Sprintf(`{"text":%q}`, big)
	req := httptest.NewRequest(http.MethodPost, "/messages/"+bob, bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", alice)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
