package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket limits requests per client IP. Each client holds up to capacity tokens and
// regains rate tokens per minute.
type TokenBucket struct {
	capacity float64
	rate     float64
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
	sweep   time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// idleAfter is how long an untouched bucket is kept. A full bucket is indistinguishable from
// a missing one, so dropping it loses nothing.
const idleAfter = 10 * time.Minute

// NewTokenBucket creates a limiter. A non-positive capacity defaults to perMinute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		rate:     float64(perMinute),
		now:      time.Now,
		clients:  make(map[string]*bucket),
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After header. A non-positive
// rate disables limiting.
func (l *TokenBucket) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rate <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if !l.allow(key) {
			c.Header("Retry-After", strconv.Itoa(l.retryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}

func (l *TokenBucket) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweep) > idleAfter {
		for k, b := range l.clients {
			if now.Sub(b.seen) > idleAfter {
				delete(l.clients, k)
			}
		}
		l.sweep = now
	}

	b, ok := l.clients[key]
	if !ok {
		b = &bucket{tokens: l.capacity, seen: now}
		l.clients[key] = b
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.seen).Minutes()*l.rate)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// retryAfter is the number of seconds until one token is back.
func (l *TokenBucket) retryAfter() int {
	return int(math.Ceil(60 / l.rate))
}
