// Package sonarr implements the client for the Sonarr v3 API.
package sonarr

import (
	"context"
	"encoding/json"
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
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/httpclient"
	"github.com/stacklok/tvmaze-sync/internal/otel"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

const (
	// DefaultMaxRetries is how many times a 5xx or timed out request is repeated
	DefaultMaxRetries = 3

	// APIName labels Sonarr requests in metrics
	APIName = "sonarr"

	// APIKeyHeader carries the Sonarr API key
	APIKeyHeader = "X-Api-Key"

	apiPrefix = "/api/v3"
)

// Client talks to one Sonarr instance
type Client struct {
	http       httpclient.Client
	baseURL    *url.URL
	metrics    *telemetry.APIMetrics
	tracer     trace.Tracer
	maxRetries uint
	newBackOff func() backoff.BackOff
	timeout    time.Duration

	// version is filled in by ResolveParams
	version string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The caller is responsible for
// sending the API key header.
func WithHTTPClient(c httpclient.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// WithTimeout bounds each HTTP request
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

// WithMetrics records request counts
func WithMetrics(m *telemetry.APIMetrics) Option {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithTracer records a span per call
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

// NewClient creates a Sonarr client for baseURL authenticating with apiKey
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid Sonarr URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid Sonarr URL %q: scheme must be http or https", baseURL)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sonarr API key is required")
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
		c.http = httpclient.NewDefaultClient(c.timeout, httpclient.WithDefaultHeader(APIKeyHeader, apiKey))
	}
	return c, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	return b
}

// Version returns the Sonarr version seen by the last status call
func (c *Client) Version() string {
	return c.version
}

// SystemStatus returns the Sonarr version information
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	data, err := c.get(ctx, "/system/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get Sonarr system status: %w", err)
	}
	var status SystemStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode Sonarr system status: %w", err)
	}
	return &status, nil
}

// Healthy reports whether Sonarr answers its status endpoint
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.SystemStatus(ctx)
	if err != nil {
		slog.Debug("Sonarr health check failed", "error", err)
	}
	return err == nil
}

// Lookup searches Sonarr for the series with the given TVDB id. The boolean
// is false when Sonarr does not know the id.
func (c *Client) Lookup(ctx context.Context, tvdbID int64) (*Candidate, bool, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "sonarr.Lookup",
		trace.WithAttributes(otel.AttrEndpoint.String(apiPrefix+"/series/lookup"), otel.AttrTVDBID.Int64(tvdbID)))
	defer span.End()

	term := "tvdb:" + strconv.FormatInt(tvdbID, 10)
	data, err := c.get(ctx, "/series/lookup", url.Values{"term": []string{term}})
	if err != nil {
		otel.RecordError(span, err)
		return nil, false, fmt.Errorf("failed to look up TVDB id %d: %w", tvdbID, err)
	}

	doc := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !doc.IsArray() {
		return nil, false, fmt.Errorf("lookup for TVDB id %d did not return a JSON array", tvdbID)
	}
	results := doc.Array()
	if len(results) == 0 {
		return nil, false, nil
	}

	first := results[0]
	candidate := &Candidate{
		TVDBID:    first.Get("tvdbId").Int(),
		Title:     first.Get("title").String(),
		LibraryID: first.Get("id").Int(),
		Raw:       json.RawMessage(first.Raw),
	}
	if candidate.TVDBID == 0 {
		candidate.TVDBID = tvdbID
	}
	return candidate, true, nil
}

// Add asks Sonarr to add candidate with params. Sonarr refusing the series
// is a Rejected result, not an error; errors are transport failures that
// may succeed on a later attempt.
func (c *Client) Add(ctx context.Context, candidate *Candidate, params filtering.ForwardParams) (AddResult, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "sonarr.Add",
		trace.WithAttributes(otel.AttrEndpoint.String(apiPrefix+"/series"), otel.AttrTVDBID.Int64(params.TVDBID)))
	defer span.End()

	body, err := addRequest(candidate, params)
	if err != nil {
		return nil, err
	}

	data, err := c.post(ctx, "/series", body)
	if err != nil {
		if result, ok := classifyAddError(err); ok {
			return result, nil
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to add %q: %w", params.Title, err)
	}

	id := gjson.GetBytes(data, "id").Int()
	if id <= 0 {
		return nil, fmt.Errorf("sonarr accepted %q without returning a series id", params.Title)
	}
	return Created{ID: id}, nil
}

// ExistingTVDBIDs returns the Sonarr series id of every series in the
// library, keyed by TVDB id
func (c *Client) ExistingTVDBIDs(ctx context.Context) (map[int64]int64, error) {
	data, err := c.get(ctx, "/series", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list Sonarr series: %w", err)
	}
	doc := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !doc.IsArray() {
		return nil, fmt.Errorf("series list is not a JSON array")
	}

	existing := make(map[int64]int64)
	doc.ForEach(func(_, series gjson.Result) bool {
		if tvdb := series.Get("tvdbId").Int(); tvdb > 0 {
			existing[tvdb] = series.Get("id").Int()
		}
		return true
	})
	return existing, nil
}

// addRequest builds the add payload from the lookup document so Sonarr
// receives the images, seasons and title slug it returned
func addRequest(candidate *Candidate, params filtering.ForwardParams) ([]byte, error) {
	series := map[string]any{}
	if candidate != nil && len(candidate.Raw) > 0 {
		if err := json.Unmarshal(candidate.Raw, &series); err != nil {
			return nil, fmt.Errorf("invalid lookup document: %w", err)
		}
	}
	series["tvdbId"] = params.TVDBID
	if _, ok := series["title"]; !ok {
		series["title"] = params.Title
	}
	series["qualityProfileId"] = params.QualityProfileID
	if params.LanguageProfileID != nil {
		series["languageProfileId"] = *params.LanguageProfileID
	}
	series["rootFolderPath"] = params.RootFolder
	series["seasonFolder"] = params.SeasonFolder
	series["monitored"] = params.Monitor != "none"
	tags := params.Tags
	if tags == nil {
		tags = []int{}
	}
	series["tags"] = tags
	series["addOptions"] = map[string]any{
		"monitor":                  params.Monitor,
		"searchForMissingEpisodes": params.SearchOnAdd,
	}

	body, err := json.Marshal(series)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal add request: %w", err)
	}
	return body, nil
}

// classifyAddError maps validation failures to a result
func classifyAddError(err error) (AddResult, bool) {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return nil, false
	}
	switch httpErr.StatusCode {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
	default:
		return nil, false
	}

	message := validationMessage(httpErr.Body)
	lower := strings.ToLower(message + " " + string(httpErr.Body))
	if strings.Contains(lower, "already been added") || strings.Contains(lower, "already exists") {
		return AlreadyExists{}, true
	}
	return Rejected{Message: message}, true
}

// validationMessage extracts the error messages of a Sonarr validation response
func validationMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		var messages []string
		switch {
		case doc.IsArray():
			for _, m := range doc.Get("#.errorMessage").Array() {
				messages = append(messages, m.String())
			}
		case doc.IsObject():
			if m := doc.Get("message").String(); m != "" {
				messages = append(messages, m)
			}
		}
		if len(messages) > 0 {
			return strings.Join(messages, "; ")
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "no reason given"
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.resolve(path, query)
	return c.do(ctx, path, func() ([]byte, error) {
		return c.http.Get(ctx, target)
	})
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	target := c.resolve(path, nil)
	return c.do(ctx, path, func() ([]byte, error) {
		return c.http.Post(ctx, target, body)
	})
}

// do runs request, retrying server errors and timeouts
func (c *Client) do(ctx context.Context, endpoint string, request func() ([]byte, error)) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		data, err := request()
		c.metrics.RecordRequest(ctx, APIName, apiPrefix+endpoint, statusOf(err))
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if httpclient.IsServerError(err) || isTimeout(err) {
			slog.Warn("Transient Sonarr error",
				"endpoint", endpoint,
				"attempt", attempt,
				"max_attempts", c.maxRetries+1,
				"error", err)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxRetries+1),
	)
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	u.RawQuery = query.Encode()
	return u.String()
}

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
