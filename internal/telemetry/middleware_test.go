package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

func newRouter(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Get("/shows", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/trigger", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	t.Parallel()

	t.Run("passes through when metrics is nil", func(t *testing.T) {
		t.Parallel()

		mw, err := MetricsMiddleware(nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		newRouter(mw).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/shows", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("records route and status", func(t *testing.T) {
		t.Parallel()
		reader, mp := newManualProvider(t)

		mw, err := MetricsMiddleware(mp)
		require.NoError(t, err)
		router := newRouter(mw)

		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodGet, "/shows?status=added", nil),
			httptest.NewRequest(http.MethodPost, "/trigger", nil),
			httptest.NewRequest(http.MethodGet, "/missing", nil),
		} {
			router.ServeHTTP(httptest.NewRecorder(), req)
		}

		requests := collect(t, reader, "tvmaze_sync_http_requests_total")
		sum, ok := requests.Data.(metricdata.Sum[int64])
		require.True(t, ok)

		seen := map[string]string{}
		for _, dp := range sum.DataPoints {
			seen[stringAttr(dp.Attributes, "route")] = stringAttr(dp.Attributes, "status_code")
		}
		assert.Equal(t, "200", seen["/shows"])
		assert.Equal(t, "409", seen["/trigger"])
		assert.Equal(t, "404", seen[unknownRoute])

		duration := collect(t, reader, "tvmaze_sync_http_request_duration_seconds")
		_, ok = duration.Data.(metricdata.Histogram[float64])
		assert.True(t, ok)
	})
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("nil provider passes through", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		newRouter(TracingMiddleware(nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/shows", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("names spans by route and marks server errors", func(t *testing.T) {
		t.Parallel()
		exporter, tp := newTestTracerProvider(t)
		router := newRouter(TracingMiddleware(tp))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shows?limit=5", nil))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

		spans := exporter.GetSpans()
		require.Len(t, spans, 2)

		assert.Equal(t, "GET /shows", spans[0].Name)
		assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
		assert.Equal(t, codes.Unset, spans[0].Status.Code)
		var status int64
		for _, attr := range spans[0].Attributes {
			if attr.Key == semconv.HTTPResponseStatusCodeKey {
				status = attr.Value.AsInt64()
			}
		}
		assert.Equal(t, int64(http.StatusOK), status)

		assert.Equal(t, "GET /boom", spans[1].Name)
		assert.Equal(t, codes.Error, spans[1].Status.Code)
	})

	t.Run("probes are not traced", func(t *testing.T) {
		t.Parallel()
		exporter, tp := newTestTracerProvider(t)
		router := newRouter(TracingMiddleware(tp))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/trigger", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "POST /trigger", spans[0].Name)
	})

	t.Run("continues the caller's trace", func(t *testing.T) {
		t.Parallel()
		exporter, tp := newTestTracerProvider(t)

		parentCtx, parent := tp.Tracer("caller").Start(context.Background(), "caller")
		req := httptest.NewRequest(http.MethodGet, "/shows", nil)
		propagation.TraceContext{}.Inject(parentCtx, propagation.HeaderCarrier(req.Header))
		parent.End()

		router := newRouter(TracingMiddleware(tp))
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := exporter.GetSpans()
		require.Len(t, spans, 2)
		server := spans[1]
		assert.Equal(t, parent.SpanContext().TraceID(), server.SpanContext.TraceID())
	})
}
