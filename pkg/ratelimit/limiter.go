package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow takes a token if one is available, without blocking
	Allow() bool
	// Wait blocks until a token is available or ctx ends
	Wait(ctx context.Context) error
	// Reset refills the limiter completely
	Reset()
}

// TokenBucket admits up to capacity requests in a burst and refills
// continuously at capacity tokens per period, so a long run is spread
// evenly instead of stalling at each period boundary.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	interval time.Duration // time to earn one token
	last     time.Time
	now      func() time.Time
}

// NewTokenBucket creates a full bucket earning capacity tokens per period
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		interval: period / time.Duration(capacity),
		last:     time.Now(),
		now:      time.Now,
	}
}

// PerMinute returns a limiter admitting requestsPerMinute requests each
// minute, or nil when requestsPerMinute is not positive (no limit)
func PerMinute(requestsPerMinute int) Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return NewTokenBucket(requestsPerMinute, time.Minute)
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	_, ok := tb.take()
	return ok
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		delay, ok := tb.take()
		tb.mu.Unlock()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.last = tb.now()
}

// Remaining reports the whole tokens currently available
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return int(math.Floor(tb.tokens))
}

// take consumes a token, or reports how long until one is earned.
// Callers hold mu.
func (tb *TokenBucket) take() (time.Duration, bool) {
	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}

	missing := 1 - tb.tokens
	delay := time.Duration(missing * float64(tb.interval))
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return delay, false
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last)
	if elapsed <= 0 || tb.interval <= 0 {
		tb.last = now
		if tb.interval <= 0 {
			tb.tokens = tb.capacity
		}
		return
	}

	tb.tokens = math.Min(tb.capacity, tb.tokens+float64(elapsed)/float64(tb.interval))
	tb.last = now
}
