package cmcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	errs "quickpic/pkg/errors"
	"quickpic/pkg/logger"
	"quickpic/pkg/ratelimit"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Session is the authenticated context shared by every call of a run. It
// owns an HTTP client whose cookie jar receives the login cookies; logging
// in again overwrites them.
type Session struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option configures a Session
type Option func(*Session)

// WithTimeout sets the per-request timeout; zero means none
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) { s.httpClient.Timeout = timeout }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(s *Session) {
		if userAgent != "" {
			s.headers["User-Agent"] = userAgent
		}
	}
}

// WithLimiter paces every request through limiter
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(s *Session) { s.limiter = limiter }
}

// WithLogger sets the session logger
func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithTransport replaces the HTTP transport, mostly for tests
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Session) { s.httpClient.Transport = rt }
}

// NewSession creates a session against baseURL with an empty cookie jar
func NewSession(baseURL string, opts ...Option) (*Session, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	s := &Session{
		httpClient: &http.Client{Jar: jar},
		baseURL:    base,
		headers: map[string]string{
			"User-Agent":      defaultUserAgent,
			"Accept":          "application/json, text/javascript, */*; q=0.01",
			"Accept-Language": "en-US,en;q=0.9",
		},
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseURL returns the service root the session talks to
func (s *Session) BaseURL() string {
	return s.baseURL.String()
}

// Cookies returns the cookies the session would send to the service
func (s *Session) Cookies() []*http.Cookie {
	return s.httpClient.Jar.Cookies(s.baseURL)
}

// ResolveURL turns a possibly relative reference into an absolute URL
// against the service root
func (s *Session) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return s.baseURL.ResolveReference(u).String(), nil
}

// doRequest performs an HTTP request with the configured headers
func (s *Session) doRequest(req *http.Request, op string) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(req.Context()); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeNetwork, op, err)
		}
	}

	for key, value := range s.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	s.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := s.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		s.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Op:      op,
			Message: "request failed",
			Err:     err,
		}
	}

	logger.LogRequest(s.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// readBody checks the status and reads the whole response body
func (s *Session) readBody(resp *http.Response, op string) ([]byte, error) {
	defer resp.Body.Close()

	if err := checkResponseStatus(resp, op); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Op:      op,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return body, nil
}

// postForm POSTs an already encoded form body to an endpoint of the service
func (s *Session) postForm(ctx context.Context, op, endpoint, body string) ([]byte, error) {
	target, err := s.ResolveURL(endpoint)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := s.doRequest(req, op)
	if err != nil {
		return nil, err
	}
	return s.readBody(resp, op)
}

// get fetches rawURL, resolving it against the service root first
func (s *Session) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	target, err := s.ResolveURL(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, op, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := s.doRequest(req, op)
	if err != nil {
		return nil, err
	}
	return s.readBody(resp, op)
}

// decodeEnvelope parses the JSON wrapper of an API response
func (s *Session) decodeEnvelope(op string, body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		s.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"op":           op,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Op:      op,
			Message: "failed to parse JSON",
			Err:     err,
		}
	}
	return &env, nil
}

// decodeData unmarshals the data member of a successful response
func decodeData(op string, env *envelope, target interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errs.New(errs.ErrorTypeParsing, op, "response has no data")
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Op:      op,
			Message: "unexpected data layout",
			Err:     err,
		}
	}
	return nil
}

// apiFailure describes a response whose ret code is not zero
func apiFailure(op, target string, env *envelope) error {
	message := "service rejected the request"
	if env.Msg != "" {
		message = env.Msg
	}
	return &errs.Error{
		Type:    errs.ErrorTypeAPI,
		Op:      op,
		Target:  target,
		Message: message,
		Code:    int(env.Ret),
	}
}

// checkResponseStatus turns anything but 200 into a fatal error
func checkResponseStatus(resp *http.Response, op string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var target string
	if resp.Request != nil {
		target = resp.Request.URL.String()
	}
	return &errs.Error{
		Type:    errs.ErrorTypeHTTPStatus,
		Op:      op,
		Target:  target,
		Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		Code:    resp.StatusCode,
	}
}
