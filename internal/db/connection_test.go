package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantCorrupt bool
		wantBusy    bool
	}{
		{name: "nil", err: nil},
		{name: "malformed image", err: sqlite3.Error{Code: sqlite3.ErrCorrupt}, wantCorrupt: true},
		{name: "not a database", err: sqlite3.Error{Code: sqlite3.ErrNotADB}, wantCorrupt: true},
		{
			name:        "wrapped corruption",
			err:         fmt.Errorf("mark added for show 1: %w", sqlite3.Error{Code: sqlite3.ErrCorrupt}),
			wantCorrupt: true,
		},
		{name: "busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, wantBusy: true},
		{name: "locked", err: fmt.Errorf("upsert: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), wantBusy: true},
		{name: "constraint", err: sqlite3.Error{Code: sqlite3.ErrConstraint}},
		{name: "not a sqlite error", err: errors.New("database disk image is malformed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantCorrupt, IsCorruption(tt.err))
			assert.Equal(t, tt.wantBusy, IsBusy(tt.err))
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := Open("")
		require.Error(t, err)
	})

	t.Run("opens and pings", func(t *testing.T) {
		t.Parallel()
		conn, err := Open(filepath.Join(t.TempDir(), "nested", "shows.db"))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = conn.Close()
		})
		assert.NoError(t, conn.Ping(context.Background()))
	})
}
