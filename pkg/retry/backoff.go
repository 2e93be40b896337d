package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy computes the pause after a failed attempt
type BackoffStrategy interface {
	// NextDelay returns the delay following the given (1-based) failed attempt
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier after every failure
type ExponentialBackoff struct {
	BaseDelay time.Duration
	// MaxDelay caps the delay; zero means uncapped
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor spreads the delay by up to this fraction either way
	JitterFactor float64
}

// NextDelay returns BaseDelay * Multiplier^(attempt-1), capped and jittered
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= eb.Multiplier
		if eb.MaxDelay > 0 && delay >= float64(eb.MaxDelay) {
			break
		}
	}
	if eb.MaxDelay > 0 {
		delay = min(delay, float64(eb.MaxDelay))
	}

	if eb.JitterFactor > 0 {
		spread := delay * eb.JitterFactor
		delay += spread * (2*rand.Float64() - 1)
	}
	return time.Duration(max(delay, 0))
}

// ConstantBackoff waits the same Delay after every failure
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns Delay for every failed attempt
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay, returning early with ctx's error if it ends first
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
