package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/vidtube/backend/internal/logging"
)

const maxTrackedVisitors = 10000

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

// ipRateLimiter keeps one token bucket per key. Idle keys expire from the
// table after ttl.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter allows requests events per window for each key, plus burst.
// Non-positive arguments fall back to one event per second, a burst of one and
// a five minute idle ttl.
func NewIPRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) RateLimiter {
	requests = orDefault(requests, 1)
	window = orDefault(window, time.Second)
	return &ipRateLimiter{
		visitors: expirable.NewLRU[string, *rate.Limiter](maxTrackedVisitors, nil, orDefault(ttl, 5*time.Minute)),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    orDefault(burst, 1),
	}
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func (l *ipRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	limiter, ok := l.visitors.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding refreshes the entry's expiry.
	l.visitors.Add(key, limiter)
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimit rejects requests beyond the limiter's budget with 429. Keys are
// scoped so separate route groups do not share buckets.
func RateLimit(limiter RateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, scope)
			if !limiter.Allow(key) {
				logging.FromContext(r.Context()).Warn("rate limit exceeded", "key", key)
				writeFailure(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request, scope string) string {
	if scope == "" {
		return clientIP(r)
	}
	return scope + ":" + clientIP(r)
}

// clientIP prefers the first X-Forwarded-For hop, then the connection address.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
