package cmcloud

import (
	"quickpic/pkg/config"
	"quickpic/pkg/logger"
	"quickpic/pkg/ratelimit"
	"quickpic/pkg/retry"
)

// Client bundles the components of one authenticated run. They share a
// single Session and a retry policy whose recovery step is a fresh login.
type Client struct {
	Session   *Session
	Auth      *Authenticator
	Catalogue *Paginator
	Resolver  *Resolver
	Fetcher   *Fetcher
}

// NewClient wires a Client from the loaded configuration. Extra options
// are applied to the session after the configured ones.
func NewClient(cfg *config.Config, email, password string, store Store, log logger.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	sessionOpts := []Option{
		WithTimeout(cfg.Cloud.Timeout),
		WithUserAgent(cfg.Cloud.UserAgent),
		WithLogger(log),
	}
	if limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute); limiter != nil {
		sessionOpts = append(sessionOpts, WithLimiter(limiter))
	}
	sessionOpts = append(sessionOpts, opts...)

	session, err := NewSession(cfg.Cloud.BaseURL, sessionOpts...)
	if err != nil {
		return nil, err
	}

	auth := NewAuthenticator(session, email, password, log)
	policy := retry.NewRetrier(&retry.Config{
		MaxAttempts: cfg.Download.MaxAttempts,
		Backoff:     retry.FromSettings(cfg.Retry.Delay, cfg.Retry.MaxDelay, cfg.Retry.Multiplier),
		RetryIf:     retry.DefaultRetryIf,
		Recover:     auth.Recover,
		Logger:      log,
	})

	return &Client{
		Session:   session,
		Auth:      auth,
		Catalogue: NewPaginator(session, policy, cfg.Download.PageSize, log),
		Resolver:  NewResolver(session, policy, log),
		Fetcher:   NewFetcher(session, store, policy, log),
	}, nil
}
