// Package ratelimit paces requests to the cloud service.
//
// The downloader runs without a limit by default. When
// rate_limit.requests_per_minute is set, every HTTP request of the session
// first takes a token from a TokenBucket that refills continuously over
// the minute.
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
