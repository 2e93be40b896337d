// Package retry runs remote operations under a retry-with-recovery policy.
//
// An operation is attempted up to Config.MaxAttempts times. After every
// retryable failure Config.Recover is invoked once (the downloader uses it
// to log in again) and, if a backoff strategy is configured, the retrier
// pauses before the next attempt. Errors that are not retryable abort
// immediately; once the budget is spent a terminal error of type
// "exhausted" is returned which wraps both Config.Sentinel and the last
// failure.
//
// Basic usage:
//
//	policy := retry.NewRetrier(&retry.Config{
//		MaxAttempts: retry.DefaultMaxAttempts,
//		Recover:     auth.Recover,
//		Logger:      log,
//	})
//
//	url, err := retry.Run(ctx, policy.For("resolve", key, errs.ErrURLResolution),
//		func(ctx context.Context) (string, error) {
//			return resolveOnce(ctx, key)
//		})
//
// By default only errors of type api and invalid_image are retried; see
// DefaultRetryIf.
package retry
