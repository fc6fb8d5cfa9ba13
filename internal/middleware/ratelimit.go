package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP using token buckets.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	limit    rate.Limit
	burst    int
	lastSeen time.Duration
}

type clientBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows rpm requests per minute per client. rpm <= 0
// disables limiting.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	return &RateLimiter{
		clients:  make(map[string]*clientBucket),
		limit:    rate.Limit(float64(rpm) / 60.0),
		burst:    rpm,
		lastSeen: 10 * time.Minute,
	}
}

// Handler returns the gin middleware enforcing the limit.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) allow(clientIP string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	bucket, ok := r.clients[clientIP]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientIP] = bucket
	}
	bucket.seen = now

	// Evict idle clients so the map does not grow unbounded.
	if len(r.clients) > 10000 {
		for ip, b := range r.clients {
			if now.Sub(b.seen) > r.lastSeen {
				delete(r.clients, ip)
			}
		}
	}

	return bucket.limiter.Allow()
}
