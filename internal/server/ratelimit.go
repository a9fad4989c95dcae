package server

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"resumecvpro/internal/errors"

	"golang.org/x/time/rate"
)

// defaultLimiterIdleAge is used when rateLimit.window is not set.
const defaultLimiterIdleAge = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client key. Buckets for clients
// that stay quiet longer than idleAge are dropped.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	idleAge time.Duration
	now     func() time.Time
	done    chan struct{}
	logger  *errors.Logger
}

// NewRateLimiter allows requestsPerMin per client with bursts of burstCapacity.
func NewRateLimiter(requestsPerMin, burstCapacity int, idleAge time.Duration, logger *errors.Logger) *RateLimiter {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if idleAge <= 0 {
		idleAge = defaultLimiterIdleAge
	}
	l := &RateLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   burstCapacity,
		idleAge: idleAge,
		now:     time.Now,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go l.evictLoop()
	return l
}

// Allow takes one token from key's bucket without blocking.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = l.now()
	l.mu.Unlock()

	return b.limiter.Allow()
}

// GetStats reports the limiter settings and how many clients are tracked.
func (l *RateLimiter) GetStats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]any{
		"tracked_clients": len(l.buckets),
		"rate_per_minute": float64(l.limit) * 60.0,
		"burst_capacity":  l.burst,
		"idle_seconds":    int(l.idleAge.Seconds()),
	}
}

func (l *RateLimiter) evictLoop() {
	ticker := time.NewTicker(l.idleAge)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.done:
			return
		}
	}
}

func (l *RateLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleAge)
	evicted := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			evicted++
		}
	}
	if evicted > 0 {
		l.logger.Debug("Evicted idle rate limit buckets", "evicted", evicted, "remaining", len(l.buckets))
	}
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (l *RateLimiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// rateLimitMiddleware answers 429 once a client's bucket is empty.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			keyType, _, _ := strings.Cut(key, ":")
			s.metrics().RecordRateLimitHit(r.Context(), keyType)
			s.Logger.Info("Rate limit exceeded",
				"key_type", keyType,
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
		}
	}
}

// clientKey identifies the caller for rate limiting. API keys are stored as a
// short digest so raw credentials never sit in the bucket map.
func clientKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			sum := sha256.Sum256([]byte(apiKey))
			return "api:" + hex.EncodeToString(sum[:8])
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP prefers proxy headers and falls back to the peer address.
func getClientIP(r *http.Request) string {
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
