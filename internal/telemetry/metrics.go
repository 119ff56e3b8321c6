package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the meter for sync cycle metrics
	SyncMetricsMeterName = "github.com/stacklok/tvmaze-sync/sync"

	// APIMetricsMeterName is the meter for outbound API metrics
	APIMetricsMeterName = "github.com/stacklok/tvmaze-sync/api"

	// CacheMetricsMeterName is the meter for show cache gauges
	CacheMetricsMeterName = "github.com/stacklok/tvmaze-sync/cache"
)

// APIMetrics counts outbound requests to TVMaze and Sonarr
type APIMetrics struct {
	requestsTotal metric.Int64Counter
	rateLimitWait metric.Float64Histogram
}

// NewAPIMetrics creates the outbound API instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewAPIMetrics(provider metric.MeterProvider) (*APIMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(APIMetricsMeterName)

	requestsTotal, err := meter.Int64Counter(
		"tvmaze_sync_api_requests_total",
		metric.WithDescription("Outbound API requests by API, endpoint and HTTP status (0 when no response)"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitWait, err := meter.Float64Histogram(
		"tvmaze_sync_rate_limit_wait_seconds",
		metric.WithDescription("Time spent waiting for a TVMaze rate limit permit"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &APIMetrics{requestsTotal: requestsTotal, rateLimitWait: rateLimitWait}, nil
}

// RecordRequest counts one request
func (m *APIMetrics) RecordRequest(ctx context.Context, api, endpoint string, status int) {
	if m == nil {
		return
	}
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("api", api),
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(status)),
	))
}

// RecordRateLimitWait records how long a request waited for a permit
func (m *APIMetrics) RecordRateLimitWait(wait time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWait.Record(context.Background(), wait.Seconds())
}

// SyncMetrics holds the instruments describing sync cycles
type SyncMetrics struct {
	cycleDuration       metric.Float64Histogram
	cyclesTotal         metric.Int64Counter
	showsProcessed      metric.Int64Counter
	lastSuccess         metric.Float64Gauge
	initialSyncComplete metric.Int64Gauge
}

// NewSyncMetrics creates the sync cycle instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(SyncMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"tvmaze_sync_cycle_duration_seconds",
		metric.WithDescription("Duration of sync cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 14400),
	)
	if err != nil {
		return nil, err
	}

	cyclesTotal, err := meter.Int64Counter(
		"tvmaze_sync_cycles_total",
		metric.WithDescription("Sync cycles by mode and outcome"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	showsProcessed, err := meter.Int64Counter(
		"tvmaze_sync_shows_processed_total",
		metric.WithDescription("Shows processed by resulting state"),
		metric.WithUnit("{show}"),
	)
	if err != nil {
		return nil, err
	}

	lastSuccess, err := meter.Float64Gauge(
		"tvmaze_sync_last_success_timestamp_seconds",
		metric.WithDescription("Unix time of the last successful sync cycle"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	initialSyncComplete, err := meter.Int64Gauge(
		"tvmaze_sync_initial_sync_complete",
		metric.WithDescription("1 once the initial full scan has completed"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		cycleDuration:       cycleDuration,
		cyclesTotal:         cyclesTotal,
		showsProcessed:      showsProcessed,
		lastSuccess:         lastSuccess,
		initialSyncComplete: initialSyncComplete,
	}, nil
}

// RecordCycle records the duration and outcome of a cycle
func (m *SyncMetrics) RecordCycle(ctx context.Context, mode string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	)
	m.cycleDuration.Record(ctx, duration.Seconds(), attrs)
	m.cyclesTotal.Add(ctx, 1, attrs)
	if success {
		m.lastSuccess.Record(ctx, float64(time.Now().Unix()))
	}
}

// RecordShow counts a show that reached state
func (m *SyncMetrics) RecordShow(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.showsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordInitialSyncComplete records whether the initial scan has completed
func (m *SyncMetrics) RecordInitialSyncComplete(ctx context.Context, complete bool) {
	if m == nil {
		return
	}
	var v int64
	if complete {
		v = 1
	}
	m.initialSyncComplete.Record(ctx, v)
}

// CountsFunc returns a set of labelled counts, read on every collection
type CountsFunc func(ctx context.Context) (map[string]int64, error)

// RegisterCacheMetrics registers observable gauges over the show cache:
// shows per processing state and filtered shows per reason category.
// The returned registration must be unregistered on shutdown.
func RegisterCacheMetrics(
	provider metric.MeterProvider,
	stateCounts, reasonCounts CountsFunc,
) (metric.Registration, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(CacheMetricsMeterName)

	showsByState, err := meter.Int64ObservableGauge(
		"tvmaze_sync_shows",
		metric.WithDescription("Cached shows by processing state"),
		metric.WithUnit("{show}"),
	)
	if err != nil {
		return nil, err
	}

	filterReasons, err := meter.Int64ObservableGauge(
		"tvmaze_sync_filtered_shows",
		metric.WithDescription("Filtered shows by reason category"),
		metric.WithUnit("{show}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		states, err := stateCounts(ctx)
		if err != nil {
			return err
		}
		for state, n := range states {
			o.ObserveInt64(showsByState, n, metric.WithAttributes(attribute.String("state", state)))
		}

		reasons, err := reasonCounts(ctx)
		if err != nil {
			return err
		}
		for category, n := range reasons {
			o.ObserveInt64(filterReasons, n, metric.WithAttributes(attribute.String("category", category)))
		}
		return nil
	}, showsByState, filterReasons)
}
