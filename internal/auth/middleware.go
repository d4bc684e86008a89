package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type contextKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFromContext returns the claims attached by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// Authenticate rejects requests without a valid bearer token and attaches the
// token's claims to the request context.
func Authenticate(iss *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			claims, err := iss.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				slog.Debug("rejected token", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireBroker rejects callers whose token does not carry the Broker role.
// It must run after Authenticate.
func RequireBroker(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if !claims.IsBroker() {
			writeError(w, http.StatusForbidden, "broker role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter tracks failed login attempts per client.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	window   time.Duration
	maxFail  int
	now      func() time.Time
}

// Defaults for login throttling.
const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// NewRateLimiter allows maxFail failures per window for each client.
func NewRateLimiter(window time.Duration, maxFail int) *RateLimiter {
	if window <= 0 {
		window = rateLimitWindow
	}
	if maxFail <= 0 {
		maxFail = rateLimitMaxFail
	}
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		window:   window,
		maxFail:  maxFail,
		now:      time.Now,
	}
}

// RecordFailure records a failed attempt.
func (rl *RateLimiter) RecordFailure(client string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.attempts[client] = append(rl.prune(client), rl.now())
}

// Limited reports whether client has used up its failures in the window.
func (rl *RateLimiter) Limited(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := rl.prune(client)
	if len(valid) == 0 {
		delete(rl.attempts, client)
		return false
	}
	rl.attempts[client] = valid
	return len(valid) >= rl.maxFail
}

// Reset forgets a client's failures after a successful login.
func (rl *RateLimiter) Reset(client string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, client)
}

// prune drops attempts older than the window. Callers hold mu.
func (rl *RateLimiter) prune(client string) []time.Time {
	cutoff := rl.now().Add(-rl.window)
	valid := rl.attempts[client][:0]
	for _, t := range rl.attempts[client] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}
