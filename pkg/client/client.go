package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"soxmon/pkg/log"
	"soxmon/pkg/metrics"
	"soxmon/pkg/session"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 30 * time.Second

	headerRequestID = "X-Request-ID"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RetryMax only applies to requests that got no response at all.
	// Zero (the default) sends every request exactly once.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Metrics      *metrics.Metrics
}

// Client talks to the monitoring backend and owns the bearer-token contract.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	store   session.Store
	metrics *metrics.Metrics

	mu        sync.Mutex
	onExpired []func()
}

// New creates a Client that reads and clears its token through store.
func New(opts Options, store session.Store) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = defaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = defaultRetryWaitMax
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    CreateRetryableClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax, opts.Timeout),
		store:   store,
		metrics: opts.Metrics,
	}
}

// CreateRetryableClient builds the transport. Responses are never retried,
// whatever their status, so error statuses reach the caller unchanged.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax, timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = max(retryMax, 0)
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	client.CheckRetry = retryOnlyWithoutResponse
	return client
}

func retryOnlyWithoutResponse(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil {
		return false, nil
	}
	return err != nil, nil
}

// OnSessionExpired registers fn to run after a 401 has cleared the token.
// Subscribers run synchronously on the goroutine that got the 401, in
// registration order. They run once per such response, so during a dashboard
// load they may be called concurrently from several goroutines.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// Authenticated reports whether a session token is held.
func (c *Client) Authenticated() bool {
	_, err := c.store.Token()
	return err == nil
}

// Logout drops the held token. The backend is not contacted.
func (c *Client) Logout() error {
	return c.store.RemoveToken()
}

// expireSession clears the token, then notifies subscribers.
func (c *Client) expireSession(path string) error {
	if err := c.store.RemoveToken(); err != nil {
		return fmt.Errorf("clearing expired session: %w", err)
	}
	c.metrics.SessionExpired.Inc()
	log.Warn().Str("path", path).Msg("Session expired, token cleared")

	c.mu.Lock()
	subscribers := append([]func(){}, c.onExpired...)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn()
	}
	return nil
}

// bearer returns the held token, or "" when there is none.
func (c *Client) bearer() (string, error) {
	token, err := c.store.Token()
	if errors.Is(err, session.ErrNoToken) {
		return "", nil
	}
	return token, err
}

// do sends one request. The caller owns the response body.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, token string) (*http.Response, error) {
	var rawBody any
	if body != nil {
		rawBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.ObserveRequest(path, status, elapsed)

	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("Request failed")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("latency", elapsed).
		Str("request_id", requestID).
		Msg("Request done")

	return resp, nil
}

func closeBody(resp *http.Response, path string) {
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to close response body")
	}
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
