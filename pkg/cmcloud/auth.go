package cmcloud

import (
	"context"
	"sync/atomic"

	"quickpic/pkg/logger"
)

// Authenticator logs the session in with a fixed pair of credentials
type Authenticator struct {
	session  *Session
	email    string
	password string
	logger   logger.Logger
	logins   atomic.Int64
}

// NewAuthenticator creates an authenticator for session
func NewAuthenticator(session *Session, email, password string, log logger.Logger) *Authenticator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Authenticator{
		session:  session,
		email:    email,
		password: password,
		logger:   log,
	}
}

// Login posts the credentials and reports whether the service accepted
// them. It never retries. A rejected login is not an error; the session
// simply stays unauthenticated until a later call succeeds.
func (a *Authenticator) Login(ctx context.Context) (bool, error) {
	a.logins.Add(1)
	a.logger.InfoWithFields("Authenticating...", map[string]interface{}{
		"email": a.email,
	})

	body, err := a.session.postForm(ctx, "login", LoginEndpoint, LoginForm(a.email, a.password))
	if err != nil {
		return false, err
	}

	env, err := a.session.decodeEnvelope("login", body)
	if err != nil {
		return false, err
	}

	if !env.ok() {
		a.logger.WarnWithFields("Login rejected", map[string]interface{}{
			"email": a.email,
			"ret":   int(env.Ret),
			"msg":   env.Msg,
		})
		return false, nil
	}

	a.logger.DebugWithFields("Login accepted", map[string]interface{}{
		"email":   a.email,
		"cookies": len(a.session.Cookies()),
	})
	return true, nil
}

// Recover logs in again; it is the recovery step between retry attempts.
// Only transport and decoding failures are reported.
func (a *Authenticator) Recover(ctx context.Context) error {
	_, err := a.Login(ctx)
	return err
}

// Logins returns how many login attempts have been made
func (a *Authenticator) Logins() int {
	return int(a.logins.Load())
}
