// Package middleware - rate limiting.
//
// Fixed-window request budgets with in-memory state. Single-process scope;
// distributed limiting would move the counters to Redis.
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/centralpay/paycore/internal/adapters/http/common"
)

// RateLimitConfig configures a rate limiter instance.
type RateLimitConfig struct {
	// Limit is the number of requests allowed per window
	Limit int
	// Window is the counting window
	Window time.Duration
	// KeyFunc derives the limiting key; defaults to client IP
	KeyFunc func(*gin.Context) string
	// OnLimitReached runs when a request is rejected
	OnLimitReached func(*gin.Context)
}

// DefaultRateLimitConfig returns the default configuration.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Limit:  100,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		OnLimitReached: nil,
	}
}

// rateLimiter holds the limiter state.
type rateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	config  *RateLimitConfig
}

// bucket counts requests for one key within the current window.
type bucket struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(config *RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		config:  config,
	}

	go rl.cleanup()

	return rl
}

// allow reports whether the request fits the budget, with the remaining
// count and the time until the window resets.
func (rl *rateLimiter) allow(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, exists := rl.buckets[key]

	if !exists {
		rl.buckets[key] = &bucket{
			tokens:    rl.config.Limit - 1, // current request counted
			lastReset: now,
		}
		return true, rl.config.Limit - 1, rl.config.Window
	}

	if now.Sub(b.lastReset) >= rl.config.Window {
		b.tokens = rl.config.Limit - 1
		b.lastReset = now
		return true, b.tokens, rl.config.Window
	}

	if b.tokens <= 0 {
		retryAfter := rl.config.Window - now.Sub(b.lastReset)
		return false, 0, retryAfter
	}

	b.tokens--
	retryAfter := rl.config.Window - now.Sub(b.lastReset)
	return true, b.tokens, retryAfter
}

// cleanup drops buckets idle for more than two windows.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.Window * 2)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, b := range rl.buckets {
			if now.Sub(b.lastReset) > rl.config.Window*2 {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects requests over the per-key budget with 429.
//
// Fixed window counter. Every response carries the X-RateLimit-* headers;
// rejections also carry Retry-After.
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	limiter := newRateLimiter(config)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		allowed, remaining, retryAfter := limiter.allow(key)

		c.Header("X-RateLimit-Limit", itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", itoa(remaining))
		c.Header("X-RateLimit-Reset", itoa(int(time.Now().Add(retryAfter).Unix())))

		if !allowed {
			retrySeconds := int(retryAfter.Seconds())
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Header("Retry-After", itoa(retrySeconds))

			if config.OnLimitReached != nil {
				config.OnLimitReached(c)
			}

			common.TooManyRequestsResponse(c, retrySeconds)
			c.Abort()
			return
		}

		c.Next()
	}
}

// itoa is a minimal int to string converter.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	neg := i < 0
	if neg {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

// ============================================
// Endpoint-specific rate limiters
// ============================================

// SensitiveEndpointRateLimit keys on IP plus path. Used for unauthenticated
// surfaces such as webhook ingestion and registration.
func SensitiveEndpointRateLimit(limitPerMinute int) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		Limit:  limitPerMinute,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP() + ":" + c.Request.URL.Path
		},
	})
}

// TransactionRateLimit budgets financial operations per authenticated user,
// falling back to the client IP before auth ran.
func TransactionRateLimit(limitPerMinute int) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		Limit:  limitPerMinute,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			userID := GetAuthUserID(c)
			if userID.String() != "00000000-0000-0000-0000-000000000000" {
				return "user:" + userID.String()
			}
			return "ip:" + c.ClientIP()
		},
	})
}
