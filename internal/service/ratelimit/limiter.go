package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key shares the same capacity and
// refill rate.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	rate     float64 // tokens per second
	now      func() time.Time
}

func New(ratePerSec float64, burst int) *Limiter {
	return &Limiter{
		m:        make(map[string]*bucket),
		capacity: float64(burst),
		rate:     ratePerSec,
		now:      time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Middleware rejects requests over the per-client budget with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
