package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to its rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByClientIP buckets requests by client address.
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local, per-key token bucket. Idle buckets are
// evicted opportunistically every gcEvery lookups.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  int
	gcEvery  int
	now      func() time.Time
}

// NewRateLimiter returns a limiter refilling rps tokens per second with the
// given burst (minimum 1).
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
		gcEvery:  5000,
		now:      time.Now,
	}
}

// limiter returns the bucket for key. GC runs before the lookup so a stale
// bucket is dropped even when it is the one being requested.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= rl.gcEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator exempted this request.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Rejected requests get 429 with Retry-After set
// to the whole seconds until a token is available.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		res := rl.limiter(rl.keyFn(c)).ReserveN(rl.now(), 1)
		if res.OK() {
			d := res.DelayFrom(rl.now())
			if d == 0 {
				c.Next()
				return
			}
			res.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
		} else {
			c.Header("Retry-After", "1")
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
