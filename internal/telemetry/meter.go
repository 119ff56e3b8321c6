package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// DefaultMetricsInterval is how often metrics are pushed over OTLP
const DefaultMetricsInterval = 60 * time.Second

// newMeterProvider adds one reader per sink: the Prometheus registry when
// given, and a periodic OTLP reader when cfg enables metric export. With
// neither it returns a no-op provider.
func newMeterProvider(
	ctx context.Context, cfg *Config, res *resource.Resource, registry *prometheus.Registry,
) (metric.MeterProvider, error) {
	otlp := cfg.otlpMetricsEnabled()
	if registry == nil && !otlp {
		slog.Debug("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if registry != nil {
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
	}

	if otlp {
		exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval)),
		))
		slog.Info("OTLP metrics export enabled", "endpoint", cfg.GetEndpoint(), "insecure", cfg.Insecure)
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}
