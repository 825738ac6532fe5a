package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/api/middleware"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/chat"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/handlers"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/store"
)

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Logger         zerolog.Logger
	DB             store.DataStore
	Redis          *store.RedisStore // optional
	Chat           *chat.Service
	WS             http.Handler // websocket entry point
	AllowedOrigins []string
	RateWhitelist  []string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // media travels as refs, not bytes

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (no-op without Redis)
	limiter := middleware.NewRateLimiter(cfg.Redis, cfg.Logger, cfg.RateWhitelist)
	r.Use(limiter.Middleware)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(cfg.DB, cfg.Chat, cfg.Redis)
	auth := middleware.NewAuthMiddleware(cfg.DB)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/register", h.Register)

	// Realtime entry point; identity is announced in-band via the join event
	r.Handle("/ws", cfg.WS)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Get("/users", h.ListUsers)
		r.Post("/messages/{id}", h.SendMessage)
		r.Post("/messages/{id}/read", h.MarkRead)
		r.Get("/conversations/{id}", h.GetConversation)
		r.Post("/calls", h.LogCall)
	})

	return r
}
