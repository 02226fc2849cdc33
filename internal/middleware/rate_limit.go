package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	KeyPrefix         string
	Message           string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		KeyPrefix:         "snapfeed:ratelimit:",
		Message:           "Too many requests, please try again later",
	}
}

// rateLimitScript is an atomic Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_start = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return {1, limit - count - 1, 0}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = 0
    if #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, reset_at}
end
`)

// localLimiter is a per-key token bucket used when Redis is not configured.
// Limits are per process.
type localLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*localLimiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type localLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(requestsPerMinute int) *localLimiter {
	return &localLimiter{
		limiters:  make(map[string]*localLimiterEntry),
		rate:      rate.Limit(float64(requestsPerMinute) / 60),
		burst:     requestsPerMinute,
		cleanupAt: time.Now().Add(5 * time.Minute),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-10 * time.Minute)
		for k, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, k)
			}
		}
		l.cleanupAt = now.Add(5 * time.Minute)
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &localLimiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

func rejectRateLimited(c *gin.Context, cfg RateLimitConfig) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": gin.H{"code": "RATE_LIMITED", "message": cfg.Message},
	})
}

func rateLimitHandler(redisClient *redis.Client, cfg RateLimitConfig, keyFn func(*gin.Context) string) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(cfg.RequestsPerMinute)

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + keyFn(c)
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))

		if redisClient == nil {
			if !local.allow(key) {
				rejectRateLimited(c, cfg)
				return
			}
			c.Next()
			return
		}

		now := time.Now().UnixMilli()
		windowMs := int64(60 * 1000) // 1 minute

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()
		result, err := rateLimitScript.Run(ctx, redisClient, []string{key},
			cfg.RequestsPerMinute, windowMs, now,
		).Int64Slice()

		if err != nil {
			// fail open on Redis errors
			c.Next()
			return
		}

		allowed := result[0] == 1
		remaining := result[1]
		resetAt := result[2]

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			retryAfter := (resetAt - now) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt/1000))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			rejectRateLimited(c, cfg)
			return
		}

		c.Next()
	}
}

// RateLimit returns a gin middleware that rate limits by client IP
func RateLimit(redisClient *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimitHandler(redisClient, cfg, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitPerUser returns a rate limiter keyed by user ID instead of IP
func RateLimitPerUser(redisClient *redis.Client, requestsPerMinute int) gin.HandlerFunc {
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerMinute = requestsPerMinute
	cfg.KeyPrefix += "user:"

	return rateLimitHandler(redisClient, cfg, func(c *gin.Context) string {
		if userID := GetUserID(c); userID != 0 {
			return strconv.FormatUint(userID, 10)
		}
		// Fall back to IP if not authenticated
		return "ip:" + c.ClientIP()
	})
}
