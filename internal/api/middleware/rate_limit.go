package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/platform/config"
)

const (
	GroupGlobal  = "global"
	GroupRoadmap = "roadmap"
	GroupWebhook = "webhook"

	defaultLimit = 100
)

type RateLimiter struct {
	store  *sync.Map // map[string]*Bucket
	limits map[string]int
	now    func() time.Time
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	// We need to know when it was last accessed to clean it up
	lastAccess time.Time
}

// NewRateLimiter builds per-client token buckets for each group. Limits are
// requests per minute.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		store: &sync.Map{},
		limits: map[string]int{
			GroupGlobal:  cfg.GlobalPerMinute,
			GroupRoadmap: cfg.RoadmapPerMinute,
			GroupWebhook: cfg.WebhookPerMinute,
		},
		now: time.Now,
	}

	// Start cleanup routine
	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := rl.now()
		rl.store.Range(func(key, value interface{}) bool {
			bucket := value.(*Bucket)
			bucket.mu.Lock()
			// If not accessed in last 10 minutes, delete it
			if now.Sub(bucket.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			bucket.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := rl.now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// Refill bucket
	elapsed := now.Sub(bucket.lastRefill)

	// Rate is limit / 60 seconds
	refillRate := float64(limit) / 60.0
	refillTokens := int(elapsed.Seconds() * refillRate)

	if refillTokens > 0 {
		if bucket.tokens+refillTokens > limit {
			bucket.tokens = limit
		} else {
			bucket.tokens += refillTokens
		}
		bucket.lastRefill = now
	}

	// Check availability
	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

func (rl *RateLimiter) limit(group string) int {
	if limit, ok := rl.limits[group]; ok && limit > 0 {
		return limit
	}
	return defaultLimit
}

// RateLimit throttles requests per client IP within group.
func (rl *RateLimiter) RateLimit(group string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			limit := rl.limit(group)
			key := fmt.Sprintf("%s:%s", clientIP(r), group)

			if !rl.Allow(key, limit) {
				retryAfter := int(math.Ceil(60.0 / float64(limit)))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				apperrors.WriteError(w, http.StatusTooManyRequests, apperrors.ErrCodeRateLimitExceeded,
					"Too many requests", map[string]string{"group": group})
				return
			}

			next(w, r)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
