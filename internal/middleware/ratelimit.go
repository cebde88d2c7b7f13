// ratelimit.go implements per-owner rate limiting with token buckets.
//
// How token bucket works:
//   - Each owner gets a bucket of N tokens (the API key's rate_limit, or the
//     configured default for JWT sessions)
//   - Each request consumes 1 token
//   - Tokens refill at a steady rate (N tokens per hour)
//   - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// The bucket itself is golang.org/x/time/rate; this file only decides which
// bucket a request draws from and reports the state in response headers.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// RateLimiter tracks request rates per owner.
type RateLimiter struct {
	// Go Pattern: one mutex guards the map; each *rate.Limiter is
	// already safe for concurrent use on its own.
	mu           sync.Mutex
	buckets      map[string]*bucket
	defaultLimit int
	ownerUserID  string
	now          func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter. defaultLimit is requests per hour
// for requests without an API key; ownerUserID (may be empty) is never limited.
func NewRateLimiter(defaultLimit int, ownerUserID string) *RateLimiter {
	rl := &RateLimiter{
		buckets:      make(map[string]*bucket),
		defaultLimit: defaultLimit,
		ownerUserID:  ownerUserID,
		now:          time.Now,
	}

	// Start background cleanup goroutine
	go rl.cleanup()

	return rl
}

// RateLimit returns Gin middleware that enforces per-owner rate limits.
// It must run after DualAuth.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := OwnerID(c)
		if owner == "" || IsOwner(owner, rl.ownerUserID) {
			c.Next()
			return
		}

		limit := rl.defaultLimit
		key := "user:" + owner
		if apiKey := GetAPIKey(c); apiKey != nil {
			// Each key has its own budget, even when one user holds several.
			key = "key:" + apiKey.ID
			if apiKey.RateLimit > 0 {
				limit = apiKey.RateLimit
			}
		}

		allowed, remaining := rl.allow(key, limit)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Rate limit exceeded. Try again later.",
				Code:    http.StatusTooManyRequests,
			})
			return
		}

		c.Next()
	}
}

// allow consumes a token from key's bucket if one is available.
func (rl *RateLimiter) allow(key string, limit int) (bool, int) {
	if limit <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]
	if !exists || b.limit != limit {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(limit)), limit),
			limit:   limit,
		}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	if !b.limiter.AllowN(now, 1) {
		return false, 0
	}
	return true, int(b.limiter.TokensAt(now))
}

// cleanup periodically removes stale buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	// Go Pattern: time.Ticker sends values at regular intervals.
	// Always defer ticker.Stop() to release resources.
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.prune(time.Hour)
	}
}

func (rl *RateLimiter) prune(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}
