// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit       // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets[key] = b
	}
	now := l.nowFunc()
	l.mu.Unlock()

	return b.AllowN(now, 1)
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Tools that solve many chains per call get the tightest limits.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"cooperation_index":    NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		"fixation_matrix":      NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		"sweep":                NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
		"donation_probability": NewLimiter(10.0, 50),     // 600/minute, burst 50
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil // No limiter configured = no limit
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}

	return nil
}
