package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/internal/config"
)

type contextKey string

const SessionKey contextKey = "session"

func GetSessionFromCtx(ctx context.Context) *auth.UserSession {
	if session, ok := ctx.Value(SessionKey).(*auth.UserSession); ok {
		return session
	}
	return nil
}

func GetUserIDFromCtx(ctx context.Context) string {
	if session := GetSessionFromCtx(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// rateWindow tracks request counts per client IP for the current minute.
// Best effort and process-local: with a single gateway instance this is
// enough; a shared store would be needed if the gateway is ever replicated.
type rateWindow struct {
	mu     sync.Mutex
	counts map[string]int
	start  time.Time
}

var limiter = &rateWindow{counts: make(map[string]int), start: time.Now()}

func (rl *rateWindow) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.start) > time.Minute {
		rl.counts = make(map[string]int)
		rl.start = time.Now()
	}
	rl.counts[ip]++
	return rl.counts[ip] <= config.RateLimitPerMinute
}

// RateLimitMiddleware rejects clients that exceed the per-minute budget.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractClientIP(r)
		if !limiter.allow(ip) {
			RespondWithError(w, http.StatusTooManyRequests, "Too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
