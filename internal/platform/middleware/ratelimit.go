package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the fallback rate limit used when the
// configuration leaves it unset.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// bucket is a token bucket refilled lazily on each take.
type bucket struct {
	mu     sync.Mutex
	level  float64
	filled time.Time
}

func (b *bucket) take(rate, max float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.level += now.Sub(b.filled).Seconds() * rate
	if b.level > max {
		b.level = max
	}
	b.filled = now

	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

// RateLimit applies a per-client-IP token bucket to the group it is
// registered on.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)
	max := float64(cfg.BurstSize)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			b, ok := buckets[ip]
			if !ok {
				b = &bucket{level: max, filled: time.Now()}
				buckets[ip] = b
			}
			mu.Unlock()

			if !b.take(cfg.RequestsPerSecond, max) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
