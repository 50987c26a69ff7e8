// Package ratelimit paces outbound requests per vendor so a sync loop never
// hammers a municipal vendor platform faster than it tolerates.
package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/engagic/pipeline/internal/config"
)

// Limiter holds one token-bucket limiter per vendor, lazily created from the
// vendor's configured minimum delay the first time it's touched.
type Limiter struct {
	cfg     config.VendorRateLimits
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a vendor-aware limiter from the given rate limit config.
func New(cfg config.VendorRateLimits) *Limiter {
	return &Limiter{cfg: cfg, buckets: make(map[string]*rate.Limiter)}
}

// Wait blocks until vendor's next request is allowed, adding jitter so
// concurrent workers hitting the same vendor don't lock-step.
func (l *Limiter) Wait(vendor string) {
	b := l.bucketFor(vendor)
	r := b.Reserve()
	delay := r.Delay()
	if jitter := l.cfg.JitterSeconds; jitter > 0 {
		delay += time.Duration(rand.Float64() * jitter * float64(time.Second))
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (l *Limiter) bucketFor(vendor string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[vendor]; ok {
		return b
	}

	minDelay := l.cfg.DefaultMinDelay(vendor)
	every := rate.Every(minDelay)
	b := rate.NewLimiter(every, 1)
	l.buckets[vendor] = b
	return b
}
