package database

import (
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.db")

	m, err := NewFromPath(path)
	require.NoError(t, err)
	defer closeMigrator(m)

	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, fnames)

	for i := 1; i <= len(fnames); i++ {
		require.NoError(t, m.Steps(1), "step up to %d", i)
		require.NoError(t, m.Steps(-1), "step down from %d", i)
		require.NoError(t, m.Steps(1), "step up again to %d", i)
	}

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(len(fnames)), version)
}

func TestMigrateUp_Idempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.db")

	require.NoError(t, MigrateUp(path))
	require.NoError(t, MigrateUp(path))

	version, dirty, err := GetVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	err = conn.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('shows') WHERE name = 'pending_since'",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrateDown(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, MigrateUp(path))

	require.NoError(t, MigrateDown(path, 1))
	version, _, err := GetVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, MigrateDown(path, 0))
	version, _, err = GetVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestGetVersion_FreshDatabase(t *testing.T) {
	t.Parallel()

	version, dirty, err := GetVersion(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Zero(t, version)
}
