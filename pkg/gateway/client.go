package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 1 << 20

// Response is a successful provider reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// StatusError is returned for non-2xx replies after retries are exhausted,
// or immediately for permanent client errors.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.ReplaceAll(string(e.Body), "\n", " ")
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, body)
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return !isPermanentStatus(e.StatusCode)
}

// Client is a retrying JSON HTTP client bound to one provider base URL.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	headers    http.Header
	maxRetries int
	backoff    Backoff
	timeout    time.Duration
	breaker    *CircuitBreaker
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if key != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithMaxRetries sets how many times a failed request is repeated. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithAttemptTimeout bounds every single attempt. The caller's context still bounds the whole call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the provider at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers:    make(http.Header),
		maxRetries: 2,
		backoff:    DefaultBackoff(),
		timeout:    10 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends body (JSON, may be nil) to path and returns the 2xx response.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	target := c.baseURL.JoinPath(path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(lastErr, ctx.Err())
			case <-time.After(c.backoff.Delay(attempt)):
			}
		}

		resp, err := c.attempt(ctx, method, target.String(), body)
		if c.breaker != nil {
			if err == nil || !retriable(err) {
				c.breaker.Success()
			} else {
				c.breaker.Failure()
			}
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retriable(err) {
			return nil, errors.Join(ErrPermanentFailure, err)
		}
		if ctx.Err() != nil {
			break
		}

		c.logger.DebugContext(ctx, "provider request failed, retrying",
			logger.Component("gateway"),
			slog.String("method", method),
			slog.String("path", target.Path),
			logger.RetryCount(attempt+1),
			logger.Error(err),
		)
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRequestFailed, c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, target string, body []byte) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.Join(ErrTimeout, context.DeadlineExceeded, err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func retriable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// isPermanentStatus treats 4xx as final except 408, 425 and 429.
func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}
