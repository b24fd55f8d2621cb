package httpmiddleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"root/internal/store"
)

// Limiter decides whether a client key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// TokenBucket is an in-memory per-key limiter. Tokens refill continuously at
// perMinute/60 per second up to capacity.
type TokenBucket struct {
	capacity float64
	perSec   float64
	mu       sync.Mutex
	buckets  map[string]*bucket
	swept    time.Time
	now      func() time.Time
}

// sweepInterval bounds how often Allow scans for idle buckets.
const sweepInterval = time.Minute

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewTokenBucket creates a limiter. A non-positive capacity defaults to perMinute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

func (l *TokenBucket) Allow(_ context.Context, key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) >= sweepInterval {
		l.sweep(now)
	}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.capacity, seen: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.seen).Seconds()*l.perSec)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets that have refilled to capacity; a fresh bucket behaves the same.
func (l *TokenBucket) sweep(now time.Time) {
	l.swept = now
	for key, b := range l.buckets {
		if b.tokens+now.Sub(b.seen).Seconds()*l.perSec >= l.capacity {
			delete(l.buckets, key)
		}
	}
}

// RedisWindow is a fixed one-minute window shared by all replicas. When Redis errors it
// defers to the fallback limiter.
type RedisWindow struct {
	client    *redis.Client
	perMinute int
	fallback  Limiter
	logger    *zap.Logger
	now       func() time.Time
}

// NewRedisWindow creates a shared limiter allowing perMinute requests per key.
func NewRedisWindow(client *redis.Client, perMinute int, fallback Limiter, logger *zap.Logger) *RedisWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisWindow{client: client, perMinute: perMinute, fallback: fallback, logger: logger, now: time.Now}
}

func (l *RedisWindow) Allow(ctx context.Context, key string) bool {
	window := l.now().Unix() / 60
	k := store.Key("ratelimit", key, strconv.FormatInt(window, 10))

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Debug("rate limit store unavailable", zap.Error(err))
		if l.fallback == nil {
			return true
		}
		return l.fallback.Allow(ctx, key)
	}
	return incr.Val() <= int64(l.perMinute)
}

// RateLimit rejects callers over their budget with 429. Callers are keyed by client IP.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if l.Allow(c.Request.Context(), key) {
			c.Next()
			return
		}
		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "RATE_LIMITED"})
	}
}
