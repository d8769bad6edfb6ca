package worker

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ppiankov/siance/internal/model"
)

// Limiter rate-limits calls per bucket. A bucket is the host of a URL key
// (letter pages) or the raw key otherwise (embedding providers).
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limitOf(requestsPerSecond),
		defaultBurst: burst,
	}
}

// NewLimiterFromConfig creates a limiter with the default rate and the
// per-service overrides of cfg
func NewLimiterFromConfig(cfg model.RateLimitConfig) *Limiter {
	l := NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for name, r := range cfg.Services {
		l.SetRate(name, r.RequestsPerSecond, r.BurstSize)
	}
	return l
}

func limitOf(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

// Wait blocks until the bucket of key allows one more call
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(bucket(key)).Wait(ctx)
}

func (l *Limiter) getLimiter(name string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[name]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[name]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[name] = limiter

	return limiter
}

// SetRate sets a custom rate limit for one bucket (a host or a provider name).
// A non-positive rate disables limiting for that bucket.
func (l *Limiter) SetRate(name string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[name] = rate.NewLimiter(limitOf(requestsPerSecond), burst)
}

// bucket maps a key to its limiter name
func bucket(key string) string {
	parsed, err := url.Parse(key)
	if err != nil || parsed.Host == "" {
		return key
	}
	return parsed.Host
}
