package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualProvider(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

// collect returns the named metric from the reader, failing when it is absent
func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	require.Failf(t, "metric not found", "%s", name)
	return metricdata.Metrics{}
}

func stringAttr(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.AsString()
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api, err := NewAPIMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, api)
	api.RecordRequest(ctx, "tvmaze", "/shows/{id}", 200)
	api.RecordRateLimitWait(time.Second)

	sync, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, sync)
	sync.RecordCycle(ctx, "incremental", time.Second, true)
	sync.RecordShow(ctx, "added")
	sync.RecordInitialSyncComplete(ctx, true)

	reg, err := RegisterCacheMetrics(nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, reg)
}

func TestAPIMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reader, mp := newManualProvider(t)

	metrics, err := NewAPIMetrics(mp)
	require.NoError(t, err)

	metrics.RecordRequest(ctx, "tvmaze", "/shows/{id}", 200)
	metrics.RecordRequest(ctx, "tvmaze", "/shows/{id}", 200)
	metrics.RecordRequest(ctx, "tvmaze", "/shows/{id}", 404)
	metrics.RecordRateLimitWait(250 * time.Millisecond)

	requests := collect(t, reader, "tvmaze_sync_api_requests_total")
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byStatus := map[string]int64{}
	for _, dp := range sum.DataPoints {
		assert.Equal(t, "tvmaze", stringAttr(dp.Attributes, "api"))
		byStatus[stringAttr(dp.Attributes, "status")] = dp.Value
	}
	assert.Equal(t, map[string]int64{"200": 2, "404": 1}, byStatus)

	wait := collect(t, reader, "tvmaze_sync_rate_limit_wait_seconds")
	hist, ok := wait.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.25, hist.DataPoints[0].Sum, 1e-9)
}

func TestSyncMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reader, mp := newManualProvider(t)

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)

	metrics.RecordCycle(ctx, "initial", 90*time.Second, true)
	metrics.RecordCycle(ctx, "incremental", 2*time.Second, false)
	metrics.RecordShow(ctx, "added")
	metrics.RecordShow(ctx, "filtered")
	metrics.RecordShow(ctx, "filtered")
	metrics.RecordInitialSyncComplete(ctx, true)

	cycles := collect(t, reader, "tvmaze_sync_cycles_total")
	sum, ok := cycles.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)

	shows := collect(t, reader, "tvmaze_sync_shows_processed_total")
	showSum, ok := shows.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byState := map[string]int64{}
	for _, dp := range showSum.DataPoints {
		byState[stringAttr(dp.Attributes, "state")] = dp.Value
	}
	assert.Equal(t, map[string]int64{"added": 1, "filtered": 2}, byState)

	lastSuccess := collect(t, reader, "tvmaze_sync_last_success_timestamp_seconds")
	gauge, ok := lastSuccess.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, float64(time.Now().Unix()), gauge.DataPoints[0].Value, 60)

	complete := collect(t, reader, "tvmaze_sync_initial_sync_complete")
	flag, ok := complete.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, flag.DataPoints, 1)
	assert.Equal(t, int64(1), flag.DataPoints[0].Value)
}

func TestRegisterCacheMetrics(t *testing.T) {
	t.Parallel()
	reader, mp := newManualProvider(t)

	states := func(context.Context) (map[string]int64, error) {
		return map[string]int64{"added": 3, "filtered": 10}, nil
	}
	reasons := func(context.Context) (map[string]int64, error) {
		return map[string]int64{"genre": 6, "language": 4}, nil
	}

	reg, err := RegisterCacheMetrics(mp, states, reasons)
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	shows := collect(t, reader, "tvmaze_sync_shows")
	gauge, ok := shows.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	byState := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		byState[stringAttr(dp.Attributes, "state")] = dp.Value
	}
	assert.Equal(t, map[string]int64{"added": 3, "filtered": 10}, byState)

	filtered := collect(t, reader, "tvmaze_sync_filtered_shows")
	reasonGauge, ok := filtered.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, reasonGauge.DataPoints, 2)
}

func TestRegisterCacheMetrics_CallbackError(t *testing.T) {
	t.Parallel()
	reader, mp := newManualProvider(t)

	failing := func(context.Context) (map[string]int64, error) {
		return nil, errors.New("database is locked")
	}
	reg, err := RegisterCacheMetrics(mp, failing, failing)
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	var rm metricdata.ResourceMetrics
	assert.Error(t, reader.Collect(context.Background(), &rm))
}
