package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/metrics"
	"github.com/mikiasGebeyehu/Chat-ZILLA/internal/store"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(r *http.Request) string
}

// rateCounter is the slice of the redis store the limiter needs.
type rateCounter interface {
	IncrementRateLimit(ctx context.Context, caller string, window time.Duration) (int64, error)
}

// RateLimiter implements fixed-window rate limiting backed by Redis.
// With no Redis configured it passes everything through, so a dev box
// does not need Redis running.
type RateLimiter struct {
	counter   rateCounter
	limits    map[string]RateLimit
	logger    zerolog.Logger
	whitelist map[string]bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(redis *store.RedisStore, logger zerolog.Logger, whitelist []string) *RateLimiter {
	rl := &RateLimiter{
		logger:    logger,
		whitelist: make(map[string]bool, len(whitelist)),
		limits: map[string]RateLimit{
			"POST /register":       {10, time.Hour, ipKey},
			"GET /users":           {120, time.Minute, userKey},
			"POST /messages/":      {60, time.Minute, userKey},
			"GET /conversations/":  {120, time.Minute, userKey},
			"POST /calls":          {30, time.Minute, userKey},
		},
	}

	// A typed nil must not end up inside the interface, or the
	// pass-through check below stops working.
	if redis != nil {
		rl.counter = redis
	}

	for _, ip := range whitelist {
		rl.whitelist[strings.TrimSpace(ip)] = true
	}

	return rl
}

// ipKey returns rate limit key based on client IP.
func ipKey(r *http.Request) string {
	return "ip:" + RealIP(r)
}

// userKey returns rate limit key based on the caller's user ID, falling
// back to the IP before auth has resolved.
func userKey(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return "user:" + id
	}
	return "ip:" + RealIP(r)
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ips := r.Header.Get("X-Forwarded-For"); ips != "" {
		parts := strings.Split(ips, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// match finds the limit for a request, if any.
func (rl *RateLimiter) match(r *http.Request) (RateLimit, string, bool) {
	pattern := r.Method + " " + r.URL.Path
	if limit, ok := rl.limits[pattern]; ok {
		return limit, pattern, true
	}
	for key, limit := range rl.limits {
		parts := strings.SplitN(key, " ", 2)
		if r.Method == parts[0] && strings.HasSuffix(parts[1], "/") && strings.HasPrefix(r.URL.Path, parts[1]) {
			return limit, key, true
		}
	}
	return RateLimit{}, "", false
}

// Middleware enforces the configured limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.counter == nil {
			next.ServeHTTP(w, r)
			return
		}

		limit, endpoint, ok := rl.match(r)
		if !ok || rl.whitelist[RealIP(r)] {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("%s:%s", endpoint, limit.KeyFunc(r))
		count, err := rl.counter.IncrementRateLimit(r.Context(), key, limit.Window)
		if err != nil {
			// Redis being down should not take requests with it.
			rl.logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(limit.Requests) {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", limit.Window.Seconds()))
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
