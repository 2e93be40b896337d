package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
)

// DefaultMaxAttempts is the attempt budget of every remote operation
const DefaultMaxAttempts = 9

// ErrAttemptsExhausted is used when a Config names no sentinel of its own
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// RecoverFunc restores the preconditions of an operation after a failed
// attempt, e.g. by logging in again. It runs once per failed attempt.
type RecoverFunc func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first
	MaxAttempts int
	// Backoff strategy to wait between attempts; nil means retry immediately
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// Recover is called after each retryable failure
	Recover RecoverFunc
	// OnRetry is called before recovery with the failed attempt number
	OnRetry func(attempt int, err error)
	// Op and Target identify the operation in logs and in the terminal error
	Op     string
	Target string
	// Sentinel is joined into the terminal error so callers can errors.Is it
	Sentinel error
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with the pipeline defaults:
// nine attempts, no delay, retry only application-level failures
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     nil,
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries typed errors whose type is retryable. Context
// cancellation and untyped errors are fatal.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return false
}

// Do executes an operation with retry-with-recovery logic.
//
// Each failed retryable attempt is followed by exactly one call to
// cfg.Recover, including the last one. Once cfg.MaxAttempts attempts have
// failed a terminal *errors.Error of type exhausted is returned. Errors that
// are not retryable, and errors from Recover, are returned immediately.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"op":      cfg.Op,
					"target":  cfg.Target,
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}

		logger.LogRetry(log, cfg.Op, cfg.Target, attempt, cfg.MaxAttempts, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if cfg.Recover != nil {
			if rerr := cfg.Recover(ctx); rerr != nil {
				return fmt.Errorf("recovery after %s attempt #%d failed: %w", cfg.Op, attempt, rerr)
			}
		}

		if attempt < cfg.MaxAttempts && cfg.Backoff != nil {
			if err := Wait(ctx, cfg.Backoff.NextDelay(attempt)); err != nil {
				return fmt.Errorf("retry cancelled: %w", err)
			}
		}
	}

	sentinel := cfg.Sentinel
	if sentinel == nil {
		sentinel = ErrAttemptsExhausted
	}
	log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"op":       cfg.Op,
		"target":   cfg.Target,
		"attempts": cfg.MaxAttempts,
	})
	return errs.Exhausted(sentinel, cfg.Op, cfg.Target, cfg.MaxAttempts, lastErr)
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

// Retrier provides a reusable retry policy. Components keep one and derive
// a per-call copy naming the operation and its target.
type Retrier struct {
	config *Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retrier{config: cfg}
}

// For returns a copy of the retrier labelled for one operation
func (r *Retrier) For(op, target string, sentinel error) *Retrier {
	newConfig := *r.config
	newConfig.Op = op
	newConfig.Target = target
	newConfig.Sentinel = sentinel
	return &Retrier{config: &newConfig}
}

// WithRecover returns a copy of the retrier using recover between attempts
func (r *Retrier) WithRecover(recover RecoverFunc) *Retrier {
	newConfig := *r.config
	newConfig.Recover = recover
	return &Retrier{config: &newConfig}
}

// WithMaxAttempts returns a new retrier with updated max attempts
func (r *Retrier) WithMaxAttempts(maxAttempts int) *Retrier {
	newConfig := *r.config
	newConfig.MaxAttempts = maxAttempts
	return &Retrier{config: &newConfig}
}

// WithBackoff returns a new retrier with updated backoff strategy
func (r *Retrier) WithBackoff(backoff BackoffStrategy) *Retrier {
	newConfig := *r.config
	newConfig.Backoff = backoff
	return &Retrier{config: &newConfig}
}

// Config exposes a copy of the retrier's configuration
func (r *Retrier) Config() Config {
	return *r.config
}

// Do executes an operation with retry logic
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	return Do(ctx, op, r.config)
}

// Run executes op through the retrier and returns its result
func Run[T any](ctx context.Context, r *Retrier, op OperationWithResult[T]) (T, error) {
	return DoWithResult(ctx, op, r.config)
}

// FromSettings builds the backoff strategy matching the configured delay.
// A zero delay means attempts follow each other immediately.
func FromSettings(delay, maxDelay time.Duration, multiplier float64) BackoffStrategy {
	if delay <= 0 {
		return nil
	}
	if multiplier <= 1 {
		return &ConstantBackoff{Delay: delay}
	}
	return &ExponentialBackoff{
		BaseDelay:  delay,
		MaxDelay:   maxDelay,
		Multiplier: multiplier,
	}
}
