package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
)

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	// Allow records a hit for key and reports whether it is within the limit.
	// When it is not, retryAfter is the time left in the window.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// MemoryLimiter is a process-local fixed window limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		l.sweep(now)
		l.clients[key] = &clientBucket{count: 1, windowEnd: now.Add(l.window)}
		return true, 0, nil
	}

	if b.count >= l.limit {
		return false, b.windowEnd.Sub(now), nil
	}

	b.count++
	return true, 0, nil
}

// sweep drops expired buckets; called with mu held.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.clients {
		if !now.Before(b.windowEnd) {
			delete(l.clients, k)
		}
	}
}

// RedisLimiter shares counters between replicas through Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:login:",
	}
}

// loginWindowScript increments the counter and starts the window on the first
// hit, returning the count and the remaining TTL in milliseconds. A key left
// without a TTL gets one again so it cannot block forever.
var loginWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if n == 1 or ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	vals, err := loginWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit: %w", err)
	}
	if len(vals) != 2 {
		return false, 0, fmt.Errorf("rate limit: unexpected script reply %v", vals)
	}

	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond
	if count > int64(l.limit) {
		if ttl <= 0 {
			ttl = l.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter
// failures are logged and the request is let through.
func RateLimit(limiter Limiter, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "rate limiter unavailable", "err", err)
			c.Next()
			return
		}

		if !allowed {
			secs := int(retryAfter.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			apierrors.RateLimited(c, "")
			return
		}

		c.Next()
	}
}

// KeyByIP keys unauthenticated endpoints by client address.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}
