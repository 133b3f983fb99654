package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"atscheck/internal/errors"

	"golang.org/x/time/rate"
)

const defaultLimiterEviction = 10 * time.Minute

// LimiterManager keeps one token bucket per client key.
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	evictAge time.Duration
	done     chan struct{}
	once     sync.Once
	logger   *errors.Logger
}

// RateLimiter is the limiter used by the HTTP middleware.
type RateLimiter = LimiterManager

// NewRateLimiter creates a manager allowing requestsPerMin per key with the
// given burst. Keys idle for longer than evictAfter are forgotten.
func NewRateLimiter(requestsPerMin, burstCapacity int, evictAfter time.Duration, logger *errors.Logger) *LimiterManager {
	if evictAfter <= 0 {
		evictAfter = defaultLimiterEviction
	}
	if burstCapacity <= 0 {
		burstCapacity = 1
	}

	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		evictAge: evictAfter,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(evictAfter)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow reports whether a request for key may proceed now.
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
	}
}

func (m *LimiterManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(time.Now())
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters not used within the eviction age.
func (m *LimiterManager) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > m.evictAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}

	if m.logger != nil {
		m.logger.Debug("Rate limiter cleanup completed",
			"remaining_limiters", len(m.limiters))
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *LimiterManager) Close() {
	m.once.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects clients that exceed their token bucket with 429.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.RateLimiter == nil {
		return next
	}

	trustProxy := s.RateLimit.TrustProxyHeaders
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getRateLimitKey(r, s.RateLimit.ByIP, trustProxy)

		if !s.RateLimiter.Allow(key) {
			requestLogger(r.Context(), s.Logger).Info("Rate limit exceeded",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r, trustProxy))
			s.om.RecordRateLimitHit(r.Context(), r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getRateLimitKey returns the bucket key for r.
func getRateLimitKey(r *http.Request, byIP, trustProxy bool) string {
	if byIP {
		return "ip:" + getClientIP(r, trustProxy)
	}
	return "global"
}

// getClientIP extracts the client IP address from the request. Forwarding
// headers are client-controlled and only consulted when trustProxy is set.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseFirstIP(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
