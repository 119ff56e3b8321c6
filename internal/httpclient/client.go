// Package httpclient provides the JSON HTTP client shared by the TVMaze and
// Sonarr clients.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stacklok/tvmaze-sync/internal/versions"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024
)

// UserAgent is the user agent string for HTTP requests
var UserAgent = "tvmaze-sync/" + versions.Version

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string, opts ...RequestOption) ([]byte, error)

	// Post sends body as JSON and returns the response body
	Post(ctx context.Context, url string, body []byte, opts ...RequestOption) ([]byte, error)
}

// RequestOption customizes a single request
type RequestOption func(*http.Request)

// WithHeader sets a request header
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client  *http.Client
	headers http.Header
}

// ClientOption configures a DefaultClient
type ClientOption func(*DefaultClient)

// WithDefaultHeader sets a header on every request made by the client
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *DefaultClient) {
		c.headers.Set(key, value)
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *DefaultClient) {
		c.client.Transport = rt
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...ClientOption) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client:  &http.Client{Timeout: timeout},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string, opts ...RequestOption) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, opts)
}

// Post performs an HTTP POST request with a JSON body
func (c *DefaultClient) Post(ctx context.Context, url string, body []byte, opts ...RequestOption) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body, opts)
}

func (c *DefaultClient) do(ctx context.Context, method, url string, body []byte, opts []RequestOption) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// +1 to detect if limit exceeded
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := NewHTTPError(resp.StatusCode, redact(req), resp.Status)
		httpErr.Body = data
		httpErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, httpErr
	}

	return data, nil
}

// redact returns the request URL without its query string, which may carry
// an API key
func redact(req *http.Request) string {
	u := *req.URL
	if u.RawQuery != "" {
		u.RawQuery = ""
	}
	return u.String()
}
