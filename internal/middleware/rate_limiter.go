package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// bucket is one caller's token state.
type bucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimiter is a per-caller token bucket. Each limiter has a scope name so
// the general API budget and the model budget are tracked separately.
type RateLimiter struct {
	scope        string
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
	now          func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter creates a limiter holding maxTokens per caller and adding
// refillRate tokens every refillPeriod.
func NewRateLimiter(scope string, maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		scope:        scope,
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		now:          time.Now,
		buckets:      make(map[string]*bucket),
	}
}

// APIRateLimiter covers every authenticated route.
func APIRateLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter("api", perMinute, refillPerTick(perMinute), 6*time.Second)
}

// ModelRateLimiter covers routes that call the chat models.
func ModelRateLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter("model", perMinute, refillPerTick(perMinute), 6*time.Second)
}

// refillPerTick spreads a per-minute budget over ten refills.
func refillPerTick(perMinute int) int {
	return max(1, int(math.Ceil(float64(perMinute)/10)))
}

func (rl *RateLimiter) refill(b *bucket, now time.Time) {
	refills := int(now.Sub(b.lastRefill) / rl.refillPeriod)
	if refills <= 0 {
		return
	}
	b.tokens = min(rl.maxTokens, b.tokens+refills*rl.refillRate)
	b.lastRefill = b.lastRefill.Add(time.Duration(refills) * rl.refillPeriod)
}

// Allow takes a token for key and reports whether one was available, along
// with the tokens left afterwards.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.maxTokens, lastRefill: now}
		rl.buckets[key] = b
	}
	rl.refill(b, now)

	if b.tokens > 0 {
		b.tokens--
		return true, b.tokens
	}
	return false, 0
}

// RetryAfter is how long key waits for its next token.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || b.tokens > 0 {
		return 0
	}
	return max(0, b.lastRefill.Add(rl.refillPeriod).Sub(rl.now()))
}

// Sweep drops callers whose bucket has refilled completely since their last
// request.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		rl.refill(b, now)
		if b.tokens >= rl.maxTokens {
			delete(rl.buckets, key)
		}
	}
}

// RateLimitMiddleware limits by user ID, falling back to the client IP before
// authentication.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id, ok := GetUserID(c); ok {
			key = id.String()
		}

		allowed, remaining := rl.Allow(key)
		c.Header("X-RateLimit-Scope", rl.scope)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.maxTokens))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			wait := rl.RetryAfter(key)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited,
				fmt.Sprintf("too many %s requests, please try again later", rl.scope), int(wait.Milliseconds()))
			c.Abort()
			return
		}

		c.Next()
	}
}
