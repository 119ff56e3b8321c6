package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/tvmaze-sync/internal/app/mocks"
	"github.com/stacklok/tvmaze-sync/internal/catalog"
	catalogmocks "github.com/stacklok/tvmaze-sync/internal/catalog/mocks"
	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	syncmocks "github.com/stacklok/tvmaze-sync/internal/sync/mocks"
)

// createValidTestConfig creates a minimal valid config for testing
func createValidTestConfig(dataDir string) *config.Config {
	cfg := config.Default()
	cfg.Storage.Path = dataDir
	cfg.Sonarr.URL = "http://sonarr.invalid:8989"
	cfg.Sonarr.APIKey = "test-key"
	cfg.Sonarr.RootFolder = config.ParseIDOrName("/tv")
	cfg.Sonarr.QualityProfile = config.ParseIDOrName("4")
	cfg.Selections = []config.SelectionConfig{
		{Name: "english", Languages: []string{"English"}},
	}
	return cfg
}

func resolvedParams() filtering.ForwardParams {
	return filtering.ForwardParams{
		RootFolder:       "/tv",
		QualityProfileID: 4,
		Monitor:          "all",
		SearchOnAdd:      true,
		SeasonFolder:     true,
		Tags:             []int{},
	}
}

func TestBaseConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg := createValidTestConfig("/tmp/tvmaze-sync")

	built, err := baseConfig(WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, ":8080", built.address)
	assert.Equal(t, "/tmp/tvmaze-sync", built.dataDir)
	assert.Equal(t, defaultRequestTimeout, built.requestTimeout)
}

func TestBaseConfig_NilConfig(t *testing.T) {
	t.Parallel()
	built, err := baseConfig()
	require.Error(t, err)
	assert.Nil(t, built)
}

func TestBaseConfig_ChainedOptions(t *testing.T) {
	t.Parallel()
	built, err := baseConfig(
		WithConfig(createValidTestConfig("/tmp/tvmaze-sync")),
		WithAddress(":8888"),
		WithDataDirectory("/tmp/test-data"),
	)
	require.NoError(t, err)
	assert.Equal(t, ":8888", built.address)
	assert.Equal(t, "/tmp/test-data", built.dataDir)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":9090"},
		{name: "localhost", addr: "localhost:8080"},
		{name: "ip and port", addr: "127.0.0.1:0"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing port", addr: ":", wantErr: true},
		{name: "no colon", addr: "8080", wantErr: true},
		{name: "bad port", addr: ":http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &syncAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, cfg.address)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestWithDataDirectory_Empty(t *testing.T) {
	t.Parallel()
	cfg := &syncAppConfig{}
	require.Error(t, WithDataDirectory("")(cfg))
}

func TestLockDataDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "data")

	lock, err := LockDataDir(dir)
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, lockFileName))
	require.NoError(t, statErr)

	_, err = LockDataDir(dir)
	require.ErrorIs(t, err, ErrDataDirLocked)

	require.NoError(t, lock.Unlock())
	again, err := LockDataDir(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestResolveParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dryRun  bool
		resolve error
		want    filtering.ForwardParams
		wantErr bool
	}{
		{
			name: "resolved",
			want: resolvedParams(),
		},
		{
			name:    "failure outside dry run",
			resolve: errors.New("root folder not found"),
			wantErr: true,
		},
		{
			name:    "dry run falls back to configured values",
			dryRun:  true,
			resolve: errors.New("connection refused"),
			want:    resolvedParams(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			downstream := mocks.NewMockDownstreamClient(ctrl)

			cfg := createValidTestConfig(t.TempDir())
			cfg.DryRun = tt.dryRun

			resolved := filtering.ForwardParams{}
			if tt.resolve == nil {
				resolved = resolvedParams()
			}
			downstream.EXPECT().ResolveParams(gomock.Any(), &cfg.Sonarr).Return(resolved, tt.resolve)

			params, err := resolveParams(context.Background(), cfg, downstream)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to validate Sonarr configuration")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, params)
		})
	}
}

func TestCountsFuncs(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	store := catalogmocks.NewMockReader(ctrl)

	store.EXPECT().StateCounts(gomock.Any()).Return(map[catalog.State]int{
		catalog.StatePending: 3,
		catalog.StateAdded:   1,
	}, nil)
	store.EXPECT().FilterReasonCounts(gomock.Any()).Return(map[string]int{"language": 7}, nil)

	states, err := stateCounts(store)(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, len(catalog.AllStates()))
	assert.Equal(t, int64(3), states[string(catalog.StatePending)])
	assert.Equal(t, int64(1), states[string(catalog.StateAdded)])
	assert.Equal(t, int64(0), states[string(catalog.StateFiltered)])

	reasons, err := reasonCounts(store)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"language": 7}, reasons)
}

func TestNewSyncApp(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	dataDir := t.TempDir()
	cfg := createValidTestConfig(dataDir)

	upstream := syncmocks.NewMockUpstreamClient(ctrl)
	downstream := mocks.NewMockDownstreamClient(ctrl)
	downstream.EXPECT().ResolveParams(gomock.Any(), gomock.Any()).Return(resolvedParams(), nil)

	app, err := NewSyncApp(context.Background(),
		WithConfig(cfg),
		WithAddress("127.0.0.1:0"),
		WithUpstreamClient(upstream),
		WithDownstreamClient(downstream),
	)
	require.NoError(t, err)

	components := app.Components()
	require.NotNil(t, components.Store)
	require.NotNil(t, components.SyncManager)
	require.NotNil(t, components.SyncCoordinator)
	require.NotNil(t, app.GetHTTPServer())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
	assert.FileExists(t, filepath.Join(dataDir, "shows.db"))

	// The data directory stays locked until the app is released
	_, err = NewSyncApp(context.Background(),
		WithConfig(createValidTestConfig(dataDir)),
		WithUpstreamClient(upstream),
		WithDownstreamClient(downstream),
	)
	require.ErrorIs(t, err, ErrDataDirLocked)

	require.NoError(t, app.release())
	lock, err := LockDataDir(dataDir)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}

func TestNewSyncApp_ServerDisabled(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	cfg := createValidTestConfig(t.TempDir())
	cfg.Server.Enabled = false

	downstream := mocks.NewMockDownstreamClient(ctrl)
	downstream.EXPECT().ResolveParams(gomock.Any(), gomock.Any()).Return(resolvedParams(), nil)

	app, err := NewSyncApp(context.Background(),
		WithConfig(cfg),
		WithUpstreamClient(syncmocks.NewMockUpstreamClient(ctrl)),
		WithDownstreamClient(downstream),
	)
	require.NoError(t, err)
	assert.Nil(t, app.GetHTTPServer())
	require.NoError(t, app.release())
}

func TestNewSyncApp_ResolveFailureReleasesDataDir(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	dataDir := t.TempDir()
	cfg := createValidTestConfig(dataDir)
	cfg.DryRun = false

	downstream := mocks.NewMockDownstreamClient(ctrl)
	downstream.EXPECT().ResolveParams(gomock.Any(), gomock.Any()).
		Return(filtering.ForwardParams{}, errors.New("quality profile not found"))

	_, err := NewSyncApp(context.Background(),
		WithConfig(cfg),
		WithUpstreamClient(syncmocks.NewMockUpstreamClient(ctrl)),
		WithDownstreamClient(downstream),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality profile not found")

	lock, err := LockDataDir(dataDir)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}

func TestBuildHTTPServer_MetricsHandler(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	b, err := baseConfig(
		WithConfig(createValidTestConfig(t.TempDir())),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		})),
	)
	require.NoError(t, err)
	b.downstream = mocks.NewMockDownstreamClient(ctrl)

	server, err := buildHTTPServer(context.Background(), b, &AppComponents{
		Store:           catalogmocks.NewMockStore(ctrl),
		SyncManager:     syncmocks.NewMockManager(ctrl),
		SyncCoordinator: &fakeCoordinator{},
	})
	require.NoError(t, err)
	assert.Equal(t, ":8080", server.Addr)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}
