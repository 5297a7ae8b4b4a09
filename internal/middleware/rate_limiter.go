package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP. It only slows down floods;
// referral admission never depends on it.
type RateLimiter struct {
	ips      map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows one request every interval per IP with the given
// burst. Call Close to stop the cleanup goroutine.
func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	r := &RateLimiter{
		ips:     make(map[string]*visitor),
		limit:   rate.Every(interval),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		stop:    make(chan struct{}),
	}
	go r.cleanup()
	return r
}

func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			for ip, v := range r.ips {
				if now.Sub(v.lastSeen) > r.idleTTL {
					delete(r.ips, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine
func (r *RateLimiter) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Allow reports whether ip may make another request now
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.ips[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.ips[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// RateLimit returns gin middleware enforcing the per-IP limit
func (r *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.String(http.StatusTooManyRequests, "Too many requests, slow down.")
			c.Abort()
			return
		}
		c.Next()
	}
}
