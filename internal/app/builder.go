package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/tvmaze-sync/database"
	"github.com/stacklok/tvmaze-sync/internal/api"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/db"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/httpclient"
	"github.com/stacklok/tvmaze-sync/internal/ratelimit"
	"github.com/stacklok/tvmaze-sync/internal/sources/sonarr"
	"github.com/stacklok/tvmaze-sync/internal/sources/tvmaze"
	"github.com/stacklok/tvmaze-sync/internal/status"
	pkgsync "github.com/stacklok/tvmaze-sync/internal/sync"
	"github.com/stacklok/tvmaze-sync/internal/sync/coordinator"
	"github.com/stacklok/tvmaze-sync/internal/sync/state"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

const (
	lockFileName          = ".lock"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	syncTracerName   = "github.com/stacklok/tvmaze-sync/sync"
	tvmazeTracerName = "github.com/stacklok/tvmaze-sync/tvmaze"
	sonarrTracerName = "github.com/stacklok/tvmaze-sync/sonarr"
)

// ErrDataDirLocked is returned when another process holds the data directory
var ErrDataDirLocked = errors.New("data directory is in use by another process")

// SyncAppOptions is a function that configures the app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig holds everything the builder needs. Client overrides exist
// so tests can run the app against mocks.
type syncAppConfig struct {
	config *config.Config

	upstream   pkgsync.UpstreamClient
	downstream DownstreamClient

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	dataDir string

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.dataDir == "" {
		cfg.dataDir = cfg.config.Storage.Path
	}
	if cfg.address == "" {
		cfg.address = cfg.config.Server.GetAddress()
	}

	return cfg, nil
}

// NewSyncApp builds the app in startup order: data-dir lock, show cache,
// migrations, progress record, Sonarr parameters, orchestrator, coordinator
// and HTTP server. Nothing runs until Start is called.
func NewSyncApp(
	ctx context.Context,
	opts ...SyncAppOptions,
) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	lock, err := LockDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}

	app := &SyncApp{
		config: cfg.config,
		lock:   lock,
	}

	// Release whatever was acquired when a later step fails
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			app.release()
		}
	}()

	components, err := buildStorageComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.components = components

	if err := buildSyncComponents(ctx, cfg, components); err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	app.registration, err = telemetry.RegisterCacheMetrics(cfg.meterProvider,
		stateCounts(components.Store), reasonCounts(components.Store))
	if err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}

	if cfg.config.Server.Enabled {
		app.httpServer, err = buildHTTPServer(ctx, cfg, components)
		if err != nil {
			return nil, fmt.Errorf("failed to build HTTP server: %w", err)
		}
	}

	cleanupNeeded = false
	return app, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithDataDirectory sets the directory holding the show cache and the
// progress record, overriding storage.path
func WithDataDirectory(dir string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if dir == "" {
			return fmt.Errorf("data directory cannot be empty")
		}
		cfg.dataDir = dir
		return nil
	}
}

// WithUpstreamClient replaces the TVMaze client
func WithUpstreamClient(c pkgsync.UpstreamClient) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.upstream = c
		return nil
	}
}

// WithDownstreamClient replaces the Sonarr client
func WithDownstreamClient(c DownstreamClient) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.downstream = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(mp metric.MeterProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves handler on GET /metrics
func WithMetricsHandler(h http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

func (b *syncAppConfig) tracer(name string) trace.Tracer {
	if b.tracerProvider == nil {
		return nil
	}
	return b.tracerProvider.Tracer(name)
}

// LockDataDir creates dir and takes its lock file without waiting. Commands
// that write to the show cache hold it for as long as they run.
func LockDataDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrDataDirLocked, dir)
	}
	return lock, nil
}

// buildStorageComponents opens the show cache, applies migrations and loads
// the progress record
func buildStorageComponents(ctx context.Context, b *syncAppConfig) (*AppComponents, error) {
	storage := config.StorageConfig{Path: b.dataDir}
	components := &AppComponents{}

	conn, err := db.Open(storage.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open show cache: %w", err)
	}
	components.Database = conn

	if err := database.MigrateUp(storage.GetDatabasePath()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate show cache: %w", err)
	}
	components.Store = catalog.NewSQLiteStore(conn)

	components.Progress = state.NewProgressService(status.NewFileProgressStore(storage.GetStatePath()))
	source, err := components.Progress.Initialize(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to load sync progress: %w", err)
	}

	slog.Info("Storage initialized",
		"data_dir", b.dataDir,
		"progress_source", source)
	return components, nil
}

// buildSyncComponents builds the clients, the orchestrator and the coordinator
func buildSyncComponents(
	ctx context.Context,
	b *syncAppConfig,
	components *AppComponents,
) error {
	slog.Info("Initializing sync components")
	cfg := b.config

	apiMetrics, err := telemetry.NewAPIMetrics(b.meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create API metrics: %w", err)
	}
	syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	if b.upstream == nil {
		b.upstream, err = newTVMazeClient(cfg, apiMetrics, b.tracer(tvmazeTracerName))
		if err != nil {
			return err
		}
	}
	if b.downstream == nil {
		b.downstream, err = sonarr.NewClient(cfg.Sonarr.URL, cfg.Sonarr.APIKey,
			sonarr.WithTimeout(cfg.Sonarr.Timeout.Std()),
			sonarr.WithMetrics(apiMetrics),
			sonarr.WithTracer(b.tracer(sonarrTracerName)),
		)
		if err != nil {
			return fmt.Errorf("failed to create Sonarr client: %w", err)
		}
	}

	params, err := resolveParams(ctx, cfg, b.downstream)
	if err != nil {
		return err
	}
	evaluator := filtering.NewEvaluator(cfg.Filters(), params)
	slog.Info("Filters loaded",
		"selections", len(cfg.Selections),
		"fingerprint", evaluator.Fingerprint())

	components.SyncManager = pkgsync.NewManager(
		components.Store,
		components.Progress,
		b.upstream,
		b.downstream,
		evaluator,
		cfg,
		pkgsync.WithSyncMetrics(syncMetrics),
		pkgsync.WithTracer(b.tracer(syncTracerName)),
	)

	components.SyncCoordinator = coordinator.New(
		components.SyncManager,
		components.Progress,
		cfg.Sync.PollInterval.Std(),
		coordinator.WithSyncMetrics(syncMetrics),
	)

	slog.Info("Sync components initialized successfully", "dry_run", cfg.DryRun)
	return nil
}

// newTVMazeClient builds the TVMaze client behind a governor sized from config
func newTVMazeClient(cfg *config.Config, metrics *telemetry.APIMetrics, tracer trace.Tracer) (*tvmaze.Client, error) {
	governor, err := ratelimit.New(cfg.TVMaze.RateLimit, cfg.TVMaze.RateWindow.Std(),
		ratelimit.WithWaitObserver(metrics.RecordRateLimitWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create TVMaze rate limiter: %w", err)
	}

	opts := []tvmaze.Option{
		tvmaze.WithGovernor(governor),
		tvmaze.WithHTTPClient(httpclient.NewDefaultClient(cfg.TVMaze.Timeout.Std())),
		tvmaze.WithMetrics(metrics),
		tvmaze.WithTracer(tracer),
	}
	if cfg.TVMaze.APIKey != "" {
		opts = append(opts, tvmaze.WithAPIKey(cfg.TVMaze.APIKey))
	}

	client, err := tvmaze.NewClient(cfg.TVMaze.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TVMaze client: %w", err)
	}
	return client, nil
}

// resolveParams validates the Sonarr parameters. In dry run an unreachable
// or misconfigured Sonarr is logged and the configured values are used as
// they are, since nothing will be added.
func resolveParams(ctx context.Context, cfg *config.Config, downstream DownstreamClient) (filtering.ForwardParams, error) {
	params, err := downstream.ResolveParams(ctx, &cfg.Sonarr)
	if err == nil {
		return params, nil
	}
	if !cfg.DryRun {
		return params, fmt.Errorf("failed to validate Sonarr configuration: %w", err)
	}

	slog.Error("Sonarr configuration could not be validated, continuing in dry run", "error", err)
	return filtering.ForwardParams{
		RootFolder:       cfg.Sonarr.RootFolder.String(),
		QualityProfileID: cfg.Sonarr.QualityProfile.ID,
		Monitor:          cfg.Sonarr.Monitor,
		SearchOnAdd:      cfg.Sonarr.SearchOnAdd,
		SeasonFolder:     cfg.Sonarr.SeasonFolder,
		Tags:             []int{},
	}, nil
}

func stateCounts(store catalog.Reader) telemetry.CountsFunc {
	return func(ctx context.Context) (map[string]int64, error) {
		counts, err := store.StateCounts(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]int64, len(counts))
		for _, s := range catalog.AllStates() {
			out[string(s)] = int64(counts[s])
		}
		return out, nil
	}
}

func reasonCounts(store catalog.Reader) telemetry.CountsFunc {
	return func(ctx context.Context) (map[string]int64, error) {
		counts, err := store.FilterReasonCounts(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]int64, len(counts))
		for category, n := range counts {
			out[category] = int64(n)
		}
		return out, nil
	}
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *syncAppConfig,
	components *AppComponents,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing wrap everything else so every request is seen
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, b.middlewares...)
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}

	router := api.NewServer(api.Dependencies{
		Shows:     components.Store,
		Manager:   components.SyncManager,
		Scheduler: components.SyncCoordinator,
		Sonarr:    b.downstream,
	}, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
