package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

// RateLimitConfig sizes a per-IP token bucket limiter.
type RateLimitConfig struct {
	Name              string // logged when a client is throttled, ex: "login"
	Burst             int    // bucket capacity
	RefillPerIPPerMin int    // tokens regained per minute
	MaxEntries        int    // sweep idle buckets early once this many IPs are tracked
	SweepInterval     time.Duration
	IdleTTL           time.Duration
	TrustProxy        bool // resolve IP from proxy headers when true
	Logger            logger.Logger
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 15 * time.Minute
	}
	c.Burst = max(c.Burst, 1)
	c.RefillPerIPPerMin = max(c.RefillPerIPPerMin, 1)
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return c
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// take refills the bucket for the time elapsed since the last call and
// consumes one token if available. It returns the tokens left, or the
// seconds until the next token when none is left.
func (b *bucket) take(now time.Time, rate, capacity float64) (ok bool, left int, retryAfter int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*rate)
		b.refilled = now
	}
	if b.tokens >= 1 {
		b.tokens--
		b.seen = now
		return true, int(math.Floor(b.tokens)), 0
	}
	return false, 0, max(int(math.Ceil((1-b.tokens)/rate)), 1)
}

type limiter struct {
	cfg       RateLimitConfig
	rate      float64 // tokens per second
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg = cfg.withDefaults()
	return &limiter{
		cfg:       cfg,
		rate:      float64(cfg.RefillPerIPPerMin) / 60,
		buckets:   make(map[string]*bucket, 1024),
		lastSweep: time.Now(),
	}
}

func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfterSec int) {
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.sweepLocked(now)
	}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: float64(l.cfg.Burst), refilled: now, seen: now}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.take(now, l.rate, float64(l.cfg.Burst))
}

// sweepLocked drops buckets idle for longer than IdleTTL. l.mu must be held.
func (l *limiter) sweepLocked(now time.Time) {
	for ip, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.seen) > l.cfg.IdleTTL
		b.mu.Unlock()
		if idle {
			delete(l.buckets, ip)
		}
	}
	l.lastSweep = now
}

// RateLimit throttles requests per client IP and answers 429 with a JSON body.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)
	log := l.cfg.Logger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, l.cfg.TrustProxy)
			ok, remaining, retry := l.allow(ip, time.Now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				log.Warn("client throttled",
					logger.String("limiter", l.cfg.Name),
					logger.String("ip", ip),
					logger.Int("retry_after_s", retry))
				deny(w, http.StatusTooManyRequests, "too many attempts, retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
