package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
)

func apiFailure() error {
	return errs.New(errs.ErrorTypeAPI, "metadata", "ret=1")
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{6, 1 * time.Second, "Sixth attempt (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 20; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 50 * time.Millisecond}
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, 50*time.Millisecond, backoff.NextDelay(attempt))
	}
}

func TestFromSettings(t *testing.T) {
	assert.Nil(t, FromSettings(0, time.Second, 2))
	assert.Equal(t, &ConstantBackoff{Delay: time.Second}, FromSettings(time.Second, 0, 1))

	exp, ok := FromSettings(time.Second, 10*time.Second, 2).(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, exp.MaxDelay)
	assert.Equal(t, 2.0, exp.Multiplier)
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"api failure", apiFailure(), true},
		{"invalid image", errs.New(errs.ErrorTypeInvalidImage, "fetch", "not a JPEG"), true},
		{"http status", &errs.Error{Type: errs.ErrorTypeHTTPStatus, Code: 500}, false},
		{"network", errs.Wrap(errs.ErrorTypeNetwork, "fetch", errors.New("connection reset")), false},
		{"parsing", errs.New(errs.ErrorTypeParsing, "metadata", "bad json"), false},
		{"untyped", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
		{"exhausted", errs.Exhausted(errs.ErrURLResolution, "resolve", "k", 9, apiFailure()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultRetryIf(tt.err))
		})
	}
}

func TestDoRecoversAfterEachFailure(t *testing.T) {
	attempts, recoveries := 0, 0
	cfg := &Config{
		MaxAttempts: DefaultMaxAttempts,
		Recover: func(ctx context.Context) error {
			recoveries++
			return nil
		},
		Logger: logger.NewNopLogger(),
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts <= 3 {
			return apiFailure()
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 3, recoveries, "one recovery per failed attempt")
}

func TestDoExhaustion(t *testing.T) {
	attempts, recoveries := 0, 0
	testLog := logger.NewTestLogger()
	cfg := &Config{
		MaxAttempts: DefaultMaxAttempts,
		Recover: func(ctx context.Context) error {
			recoveries++
			return nil
		},
		Op:       "Metadata fetch",
		Target:   "offset=200",
		Sentinel: errs.ErrMetadataExhausted,
		Logger:   testLog,
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return apiFailure()
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 9, attempts)
	assert.Equal(t, 9, recoveries, "the last failure is followed by a recovery too")
	assert.ErrorIs(t, err, errs.ErrMetadataExhausted)
	assert.Equal(t, errs.ErrorTypeExhausted, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "offset=200")

	// the last underlying failure stays reachable
	var last *errs.Error
	require.True(t, errors.As(errors.Unwrap(err), &last))

	assert.Len(t, testLog.GetMessagesByLevel("WARN"), 9)
	assert.True(t, testLog.HasMessage("Metadata fetch attempt #1 failed, will retry..."))
	assert.True(t, testLog.HasMessage("Metadata fetch attempt #9 failed, will retry..."))
	assert.True(t, testLog.HasError())
}

func TestDoDefaultSentinel(t *testing.T) {
	err := Do(context.Background(), func(ctx context.Context) error {
		return apiFailure()
	}, &Config{MaxAttempts: 2})

	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestDoFatalErrorIsNotRetried(t *testing.T) {
	attempts, recoveries := 0, 0
	fatal := &errs.Error{Type: errs.ErrorTypeHTTPStatus, Op: "fetch", Code: 502}
	cfg := &Config{
		MaxAttempts: 9,
		Recover: func(ctx context.Context) error {
			recoveries++
			return nil
		},
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	}, cfg)

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, recoveries)
}

func TestDoRecoverFailureAborts(t *testing.T) {
	loginErr := errors.New("login endpoint unreachable")
	attempts := 0
	cfg := &Config{
		MaxAttempts: 9,
		Op:          "Download",
		Recover: func(ctx context.Context) error {
			return loginErr
		},
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return apiFailure()
	}, cfg)

	assert.ErrorIs(t, err, loginErr)
	assert.Equal(t, 1, attempts)
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	cfg := &Config{
		MaxAttempts: 9,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		return apiFailure()
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestDoOnRetryCallback(t *testing.T) {
	var seen []int
	cfg := &Config{
		MaxAttempts: 3,
		OnRetry: func(attempt int, err error) {
			seen = append(seen, attempt)
		},
	}

	_ = Do(context.Background(), func(ctx context.Context) error {
		return apiFailure()
	}, cfg)

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "partial", apiFailure()
		}
		return "/photo.jpg", nil
	}, &Config{MaxAttempts: 9})

	require.NoError(t, err)
	assert.Equal(t, "/photo.jpg", result)

	result, err = DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		return "partial", apiFailure()
	}, &Config{MaxAttempts: 2})

	assert.Error(t, err)
	assert.Empty(t, result)
}

func TestRetrierFor(t *testing.T) {
	recoveries := 0
	base := NewRetrier(&Config{MaxAttempts: 2}).WithRecover(func(ctx context.Context) error {
		recoveries++
		return nil
	})
	policy := base.For("URL resolution", "abc123", errs.ErrURLResolution)

	assert.Empty(t, base.Config().Op, "For does not mutate the base policy")
	assert.Equal(t, "URL resolution", policy.Config().Op)

	url, err := Run(context.Background(), policy, func(ctx context.Context) (string, error) {
		return "", apiFailure()
	})

	assert.Empty(t, url)
	assert.ErrorIs(t, err, errs.ErrURLResolution)
	assert.Contains(t, err.Error(), "abc123")
	assert.Equal(t, 2, recoveries)

	assert.Equal(t, 5, base.WithMaxAttempts(5).Config().MaxAttempts)
	assert.NotNil(t, base.WithBackoff(&ConstantBackoff{Delay: time.Millisecond}).Config().Backoff)
}
