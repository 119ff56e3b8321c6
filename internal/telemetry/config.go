package telemetry

import (
	"errors"
	"fmt"

	"github.com/stacklok/tvmaze-sync/internal/versions"
)

const (
	// DefaultServiceName is the service name reported to collectors
	DefaultServiceName = "tvmaze-sync"

	// DefaultEndpoint is the default OTLP HTTP endpoint
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling ratio
	DefaultSampling = 0.05
)

// Config holds the OTLP export configuration. The Prometheus /metrics
// endpoint is served regardless; this only controls pushing to a collector.
type Config struct {
	// Enabled turns on OTLP export
	Enabled bool `yaml:"enabled"`

	// ServiceName overrides DefaultServiceName
	ServiceName string `yaml:"service_name,omitempty"`

	// ServiceVersion is reported as service.version
	ServiceVersion string `yaml:"service_version,omitempty"`

	// Endpoint is the OTLP HTTP endpoint (host:port)
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls trace export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0 and 1
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls OTLP metric export
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GetServiceName returns the configured service name or the default
func (c *Config) GetServiceName() string {
	if c == nil || c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the configured service version or the build version
func (c *Config) GetServiceVersion() string {
	if c == nil || c.ServiceVersion == "" {
		return versions.Version
	}
	return c.ServiceVersion
}

// GetEndpoint returns the configured endpoint or the default
func (c *Config) GetEndpoint() string {
	if c == nil || c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio or the default
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// tracingEnabled reports whether spans should be exported
func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// otlpMetricsEnabled reports whether metrics should be pushed over OTLP
func (c *Config) otlpMetricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}
	return errors.Join(errs...)
}
