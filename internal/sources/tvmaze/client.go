// Package tvmaze implements the rate-governed TVMaze API client.
package tvmaze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/httpclient"
	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/ratelimit"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

const (
	// DefaultMaxRetries is how many times a 5xx or timed out request is repeated
	DefaultMaxRetries = 3

	// APIName labels TVMaze requests in metrics
	APIName = "tvmaze"

	endpointShowsPage = "/shows?page"
	endpointShow      = "/shows/{id}"
	endpointUpdates   = "/updates/shows"
)

// Client is a TVMaze API client. Every request waits for a permit from the
// governor first.
type Client struct {
	http       httpclient.Client
	baseURL    *url.URL
	apiKey     string
	governor   *ratelimit.Governor
	metrics    *telemetry.APIMetrics
	tracer     trace.Tracer
	maxRetries uint
	newBackOff func() backoff.BackOff
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c httpclient.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// WithAPIKey sets the premium API key sent as the apikey query parameter
func WithAPIKey(key string) Option {
	return func(client *Client) {
		client.apiKey = key
	}
}

// WithGovernor sets the rate governor every request waits on
func WithGovernor(g *ratelimit.Governor) Option {
	return func(client *Client) {
		client.governor = g
	}
}

// WithMetrics records request counts
func WithMetrics(m *telemetry.APIMetrics) Option {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithTracer records a span per request
func WithTracer(t trace.Tracer) Option {
	return func(client *Client) {
		client.tracer = t
	}
}

// WithRetries sets how many times a transient failure is retried and the
// backoff policy between attempts
func WithRetries(maxRetries uint, newBackOff func() backoff.BackOff) Option {
	return func(client *Client) {
		client.maxRetries = maxRetries
		if newBackOff != nil {
			client.newBackOff = newBackOff
		}
	}
}

// NewClient creates a TVMaze client for baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid TVMaze base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid TVMaze base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		maxRetries: DefaultMaxRetries,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewDefaultClient(httpclient.DefaultTimeout)
	}
	if c.governor == nil {
		governor, err := ratelimit.New(ratelimit.DefaultLimit, ratelimit.DefaultWindow)
		if err != nil {
			return nil, err
		}
		c.governor = governor
	}
	return c, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	return b
}

// FetchPage returns the raw shows of one index page. TVMaze answers 404
// past the last page, which is returned as an empty slice.
func (c *Client) FetchPage(ctx context.Context, page int) ([]catalog.RawShow, error) {
	query := url.Values{"page": []string{strconv.Itoa(page)}}
	ctx, span := otel.StartSpan(ctx, c.tracer, "tvmaze.FetchPage",
		trace.WithAttributes(otel.AttrEndpoint.String(endpointShowsPage), otel.AttrPage.Int(page)))
	defer span.End()

	data, err := c.get(ctx, endpointShowsPage, "/shows", query)
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(otel.AttrResultCount.Int(0))
		return nil, nil
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch shows page %d: %w", page, err)
	}

	doc := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !doc.IsArray() {
		return nil, fmt.Errorf("shows page %d is not a JSON array", page)
	}
	items := doc.Array()
	shows := make([]catalog.RawShow, 0, len(items))
	for _, item := range items {
		shows = append(shows, catalog.RawShow(item.Raw))
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(shows)))
	return shows, nil
}

// FetchShow returns the raw detail of one show, or ErrNotFound
func (c *Client) FetchShow(ctx context.Context, id int64) (catalog.RawShow, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "tvmaze.FetchShow",
		trace.WithAttributes(otel.AttrEndpoint.String(endpointShow), otel.AttrShowID.Int64(id)))
	defer span.End()

	data, err := c.get(ctx, endpointShow, "/shows/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			otel.RecordError(span, err)
		}
		return nil, fmt.Errorf("failed to fetch show %d: %w", id, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("show %d: malformed JSON", id)
	}
	return catalog.RawShow(data), nil
}

// FetchUpdates returns the update timestamp of every show changed within
// window ("day", "week" or "month"), keyed by TVMaze id
func (c *Client) FetchUpdates(ctx context.Context, window string) (map[int64]int64, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "tvmaze.FetchUpdates",
		trace.WithAttributes(otel.AttrEndpoint.String(endpointUpdates), attribute.String("tvmaze.since", window)))
	defer span.End()

	data, err := c.get(ctx, endpointUpdates, "/updates/shows", url.Values{"since": []string{window}})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch updates: %w", err)
	}

	doc := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !doc.IsObject() {
		return nil, fmt.Errorf("updates response is not a JSON object")
	}

	updates := make(map[int64]int64)
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.ParseInt(key.String(), 10, 64)
		if err != nil || value.Type != gjson.Number {
			parseErr = fmt.Errorf("invalid updates entry %q: %q", key.String(), value.Raw)
			return false
		}
		updates[id] = value.Int()
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(updates)))
	return updates, nil
}

// get performs one governed GET, retrying server errors and timeouts
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	target := c.resolve(path, query)

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		if err := c.governor.Acquire(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		data, err := c.http.Get(ctx, target)
		c.metrics.RecordRequest(ctx, APIName, endpoint, statusOf(err))
		if err == nil {
			return data, nil
		}

		switch code := httpclient.StatusCode(err); {
		case ctx.Err() != nil:
			return nil, backoff.Permanent(ctx.Err())
		case code == http.StatusNotFound:
			return nil, backoff.Permanent(ErrNotFound)
		case code == http.StatusTooManyRequests:
			var httpErr *httpclient.HTTPError
			_ = errors.As(err, &httpErr)
			return nil, backoff.Permanent(&RateLimitedError{Endpoint: endpoint, RetryAfter: httpErr.RetryAfter})
		case httpclient.IsServerError(err) || isTimeout(err):
			slog.Warn("Transient TVMaze error",
				"endpoint", endpoint,
				"attempt", attempt,
				"max_attempts", c.maxRetries+1,
				"error", err)
			return nil, err
		default:
			return nil, backoff.Permanent(err)
		}
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxRetries+1),
	)
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if c.apiKey != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("apikey", c.apiKey)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// statusOf returns the HTTP status for metrics; 0 means no response
func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return httpclient.StatusCode(err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
