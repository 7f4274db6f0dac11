package middleware

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterMaxIdle    = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// ipLimiters holds one token bucket per client IP.
type ipLimiters struct {
	r rate.Limit
	b int
	m sync.Map // ip -> *ipLimiter
}

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	v, _ := l.m.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(l.r, l.b)})
	il := v.(*ipLimiter)
	il.lastSeen.Store(now.UnixNano())
	return il.limiter
}

// evictIdle drops buckets not used since cutoff.
func (l *ipLimiters) evictIdle(cutoff time.Time) {
	c := cutoff.UnixNano()
	l.m.Range(func(k, v any) bool {
		if v.(*ipLimiter).lastSeen.Load() < c {
			l.m.Delete(k)
		}
		return true
	})
}

func (l *ipLimiters) size() int {
	n := 0
	l.m.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// sweep evicts idle buckets every interval until ctx is done.
func (l *ipLimiters) sweep(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evictIdle(now.Add(-maxIdle))
		}
	}
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size. A non-positive r disables limiting.
// Idle buckets are swept in the background until ctx is done.
func RateLimit(ctx context.Context, r rate.Limit, b int) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := &ipLimiters{r: r, b: b}
	go limiters.sweep(ctx, limiterSweepEvery, limiterMaxIdle)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}
