// Package httpclient provides the HTTP transport used for metadata retrieval and
// SharePoint sign-in: optional retries with exponential backoff, per-host circuit
// breaking and rate limiting, response size limits and typed HTTP status errors.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jongio/azd-odata/logutil"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxResponseSize caps buffered response bodies (100MB).
	DefaultMaxResponseSize int64 = 100 * 1024 * 1024

	// maxErrorBodySize bounds how much of an error response is kept for messages.
	maxErrorBodySize = 4 * 1024

	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// Transport timeouts.
const (
	IdleConnTimeout       = 90 * time.Second
	DialTimeout           = 10 * time.Second
	KeepAliveTimeout      = 30 * time.Second
	TLSHandshakeTimeout   = 10 * time.Second
	ExpectContinueTimeout = 1 * time.Second
)

// errServerStatus marks a 5xx response so it can be retried or counted by the breaker.
var errServerStatus = errors.New("server error status")

var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     IdleConnTimeout,
	DialContext: (&net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAliveTimeout,
	}).DialContext,
	TLSHandshakeTimeout:   TLSHandshakeTimeout,
	ExpectContinueTimeout: ExpectContinueTimeout,
}

// Authenticator decorates an outgoing request with credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) error
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, req *http.Request) error

// Authenticate calls f(ctx, req).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// Options configures a Client.
type Options struct {
	// Timeout bounds a single request including reading the body. Zero means no limit.
	Timeout time.Duration
	// Debug logs each request (method, URL, status, duration) at debug level.
	Debug bool
	// BreakerFailures trips a per-host circuit breaker after this many requests with
	// a failure ratio of at least 60%. Zero disables the breaker.
	BreakerFailures int
	// BreakerTimeout is how long a tripped breaker stays open. Defaults to 30s.
	BreakerTimeout time.Duration
	// RateLimit is the per-host request rate in requests per second. Zero disables limiting.
	RateLimit float64
	// Transport overrides the shared transport (tests).
	Transport http.RoundTripper
}

// RequestOptions describes a single logical request.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Auth replaces the client's Authenticator for this request.
	Auth Authenticator
	// SkipAuth sends the request without any Authenticator.
	SkipAuth bool
	// ClearHeaders suppresses the headers net/http would add by default
	// (User-Agent, Accept-Encoding) so only Headers and the Authenticator's
	// headers are sent.
	ClearHeaders bool
	// Retry is the number of additional attempts for network errors and 5xx responses.
	Retry int
	// MaxResponseSize caps the buffered body for Execute. Defaults to DefaultMaxResponseSize.
	MaxResponseSize int64
	// NoRedirect returns 3xx responses instead of following them.
	NoRedirect bool
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Cookies    []*http.Cookie
}

// Client executes HTTP requests with optional authentication, retries, circuit
// breaking and rate limiting. It is safe for concurrent use.
type Client struct {
	transport http.RoundTripper
	bare      http.RoundTripper // transport without automatic Accept-Encoding
	auth      Authenticator
	opts      Options
	log       *logutil.ComponentLogger

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
}

// NewClient creates a client with the given authenticator (may be nil), debug flag and timeout.
func NewClient(auth Authenticator, debug bool, timeout time.Duration) *Client {
	return NewClientWithOptions(auth, Options{Timeout: timeout, Debug: debug})
}

// NewClientWithOptions creates a client from Options.
func NewClientWithOptions(auth Authenticator, opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = sharedTransport
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	return &Client{
		transport: transport,
		bare:      withoutCompression(transport),
		auth:      auth,
		opts:      opts,
		log:       logutil.NewLogger("httpclient"),
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Execute sends the request and buffers the response body.
// Non-2xx responses are returned without error; 5xx responses are retried first
// when opts.Retry is positive. Bodies larger than MaxResponseSize are rejected.
func (c *Client) Execute(ctx context.Context, opts RequestOptions) (*Response, error) {
	resp, err := c.send(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	limit := opts.MaxResponseSize
	if limit <= 0 {
		limit = DefaultMaxResponseSize
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds maximum size of %d bytes", limit)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Cookies:    resp.Cookies(),
	}, nil
}

// Stream sends the request and returns the open response for the caller to read
// and close. Any non-2xx status is turned into an *HTTPError and the body is closed.
func (c *Client) Stream(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	resp, err := c.send(ctx, opts)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, NewHTTPError(resp.StatusCode, opts.URL, statusMessage(resp.StatusCode, snippet))
	}

	return resp, nil
}

// send runs the retry loop around single attempts and returns the final response.
func (c *Client) send(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}

	if opts.Retry <= 0 {
		return c.attempt(ctx, opts)
	}

	attempts := 0
	operation := func() (*http.Response, error) {
		attempts++
		resp, err := c.attempt(ctx, opts)
		if err != nil {
			if isRetryableError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if resp.StatusCode >= 500 && attempts <= opts.Retry {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errServerStatus, resp.StatusCode)
		}
		return resp, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialBackoff
	b.MaxInterval = defaultMaxBackoff
	b.RandomizationFactor = 0.2

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(opts.Retry+1)),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Err
		}
		return nil, err
	}
	return resp, nil
}

// attempt performs exactly one request, honoring the host's rate limiter and breaker.
func (c *Client) attempt(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return nil, err
	}
	host := req.URL.Host

	if limiter := c.limiterFor(host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait for %s: %w", host, err)
		}
	}

	client := c.clientFor(opts)

	start := time.Now()
	do := func() (*http.Response, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	}

	var resp *http.Response
	if breaker := c.breakerFor(host); breaker != nil {
		var out interface{}
		out, err = breaker.Execute(func() (interface{}, error) { return do() })
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker open for %s: %w", host, err)
		}
		if r, ok := out.(*http.Response); ok {
			resp = r
		}
	} else {
		resp, err = do()
	}

	if errors.Is(err, errServerStatus) {
		err = nil
	}
	if err != nil {
		c.debugf("request failed", "method", req.Method, "url", redact(req.URL), "duration", time.Since(start), "error", err)
		return nil, err
	}

	c.debugf("request completed", "method", req.Method, "url", redact(req.URL), "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

// clientFor returns an http.Client configured for the request's redirect and
// header options.
func (c *Client) clientFor(opts RequestOptions) *http.Client {
	client := &http.Client{Timeout: c.opts.Timeout, Transport: c.transport}
	if opts.ClearHeaders {
		client.Transport = c.bare
	}
	if opts.NoRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// withoutCompression copies an *http.Transport with DisableCompression set, so
// net/http does not add Accept-Encoding on its own. Other round trippers are
// returned unchanged.
func withoutCompression(rt http.RoundTripper) http.RoundTripper {
	t, ok := rt.(*http.Transport)
	if !ok {
		return rt
	}
	bare := t.Clone()
	bare.DisableCompression = true
	return bare
}

func (c *Client) newRequest(ctx context.Context, opts RequestOptions) (*http.Request, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if opts.ClearHeaders {
		// An explicitly empty User-Agent stops net/http from adding its default.
		req.Header.Set("User-Agent", "")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	auth := c.auth
	if opts.Auth != nil {
		auth = opts.Auth
	}
	if !opts.SkipAuth && auth != nil {
		if err := auth.Authenticate(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to authenticate request: %w", err)
		}
	}

	return req, nil
}

func (c *Client) breakerFor(host string) *gobreaker.CircuitBreaker {
	if c.opts.BreakerFailures <= 0 {
		return nil
	}

	c.mu.RLock()
	breaker, ok := c.breakers[host]
	c.mu.RUnlock()
	if ok {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if breaker, ok := c.breakers[host]; ok {
		return breaker
	}

	threshold := uint32(c.opts.BreakerFailures)
	breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    c.opts.BreakerTimeout,
		Timeout:     c.opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", "host", name, "from", from.String(), "to", to.String())
		},
	})
	c.breakers[host] = breaker
	return breaker
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	if c.opts.RateLimit <= 0 {
		return nil
	}

	c.mu.RLock()
	limiter, ok := c.limiters[host]
	c.mu.RUnlock()
	if ok {
		return limiter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if limiter, ok := c.limiters[host]; ok {
		return limiter
	}

	burst := int(c.opts.RateLimit)
	if burst < 1 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Limit(c.opts.RateLimit), burst)
	c.limiters[host] = limiter
	return limiter
}

func (c *Client) debugf(msg string, args ...any) {
	if c.opts.Debug {
		c.log.Debug(msg, args...)
	}
}

// redact drops user info and the query string, which may carry secrets.
func redact(u *url.URL) string {
	clean := *u
	clean.User = nil
	clean.RawQuery = ""
	return clean.String()
}

func statusMessage(code int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}

// isRetryableError reports whether err looks like a transient network failure.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"context deadline exceeded",
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
		"server error status",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
