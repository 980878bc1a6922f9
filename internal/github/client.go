// Package github is the upstream client for the GitHub REST API.
//
// Every call is a live round trip. The client bounds the number of
// simultaneous outstanding requests, applies a per-call timeout and
// retries idempotent GETs on gateway errors. Failures come back as
// *APIError (non-2xx) or *TimeoutError (deadline hit).
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	// apiVersion pins the REST API version header.
	apiVersion = "2022-11-28"

	// AcceptJSON is the default media type.
	AcceptJSON = "application/vnd.github+json"

	// AcceptDiff asks for a raw unified diff.
	AcceptDiff = "application/vnd.github.v3.diff"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 10 << 20

	// retry tuning for idempotent requests.
	retryInitialInterval = 200 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
	defaultMaxRetries    = 2
)

// Client issues authenticated requests against the GitHub REST API.
// It is safe for concurrent use and holds no per-session state.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	sem        *semaphore.Weighted
	timeout    time.Duration
	maxRetries uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxConcurrent bounds simultaneous outstanding requests.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxRetries sets how many times an idempotent request is retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a Client for baseURL authenticated with token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  "repobridge",
		httpClient: &http.Client{},
		sem:        semaphore.NewWeighted(8),
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path and returns the JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil, AcceptJSON)
}

// GetRaw fetches path with a custom Accept header (e.g. AcceptDiff).
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values, accept string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil, accept)
}

// Post sends body to path.
func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body, AcceptJSON)
}

// Put sends body to path.
func (c *Client) Put(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body, AcceptJSON)
}

// Patch sends body to path.
func (c *Client) Patch(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body, AcceptJSON)
}

// Delete sends a DELETE with an optional body.
func (c *Client) Delete(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, body, AcceptJSON)
}

// Do performs one logical request. GETs are retried on gateway errors
// with exponential backoff; mutations are sent exactly once.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte, accept string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for upstream slot: %w", err)
	}
	defer c.sem.Release(1)

	if method != http.MethodGet || c.maxRetries == 0 {
		return c.once(ctx, method, path, query, body, accept)
	}

	var out []byte
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.Reset()

	op := func() error {
		data, err := c.once(ctx, method, path, query, body, accept)
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = data
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// once performs a single HTTP round trip.
func (c *Client) once(ctx context.Context, method, path string, query url.Values, body []byte, accept string) ([]byte, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept == "" {
		accept = AcceptJSON
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{Method: method, Path: path, After: c.timeout}
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{Method: method, Path: path, After: c.timeout}
		}
		return nil, fmt.Errorf("reading %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(data, "message").String(),
			Body:       string(data),
		}
	}
	return data, nil
}

// retryable reports whether a failed idempotent call may be repeated.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var timeoutErr *TimeoutError
	return !errors.As(err, &timeoutErr) && !errors.Is(err, context.Canceled)
}
