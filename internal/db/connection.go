// Package db contains code for opening the SQLite show cache.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

const (
	defaultReadConns       = 4
	defaultBusyTimeout     = 5 * time.Second
	defaultConnMaxLifetime = 30 * time.Minute
)

// Connection wraps the writer and reader handles of the cache database.
//
// SQLite allows a single writer at a time. Writer is limited to one
// connection so write transactions are serialized inside the process,
// while Reader is a separate read-only pool that keeps serving status
// queries during a sync cycle thanks to WAL journaling.
type Connection struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// Open opens (creating if needed) the SQLite database at path
func Open(path string) (*Connection, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	writer, err := sql.Open("sqlite3", writerDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(0)

	if err := writer.Ping(); err != nil {
		closeQuietly(writer)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// journal_mode is persistent, so the reader pool picks it up from the file
	var mode string
	if err := writer.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		closeQuietly(writer)
		return nil, fmt.Errorf("failed to read journal mode: %w", err)
	}
	if mode != "wal" {
		slog.Warn("Database is not in WAL mode, readers may block behind writes", "journal_mode", mode)
	}

	reader, err := sql.Open("sqlite3", readerDSN(path))
	if err != nil {
		closeQuietly(writer)
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	reader.SetMaxOpenConns(defaultReadConns)
	reader.SetMaxIdleConns(defaultReadConns)
	reader.SetConnMaxLifetime(defaultConnMaxLifetime)

	if err := reader.Ping(); err != nil {
		closeQuietly(writer)
		closeQuietly(reader)
		return nil, fmt.Errorf("failed to ping read pool: %w", err)
	}

	slog.Info("Database connection established", "path", path, "journal_mode", mode)

	return &Connection{
		Writer: writer,
		Reader: reader,
		path:   path,
	}, nil
}

// Path returns the database file path
func (c *Connection) Path() string {
	return c.path
}

// Close closes both pools
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	slog.Info("Closing database connection", "path", c.path)

	var errs []error
	if c.Reader != nil {
		if err := c.Reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close read pool: %w", err))
		}
	}
	if c.Writer != nil {
		if err := c.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close writer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping verifies the database connection is still alive
func (c *Connection) Ping(ctx context.Context) error {
	if c == nil || c.Writer == nil {
		return fmt.Errorf("database connection is nil")
	}
	return c.Reader.PingContext(ctx)
}

// IsCorruption reports whether err is a storage-engine corruption error
// after which the database must not be used any further.
func IsCorruption(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrCorrupt || sqliteErr.Code == sqlite3.ErrNotADB
}

// IsBusy reports whether err is a lock contention error
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// MigrationURL returns the golang-migrate database URL for path
func MigrationURL(path string) string {
	return "sqlite3://" + path + "?" + pragmas(false).Encode()
}

func writerDSN(path string) string {
	return "file:" + path + "?" + pragmas(true).Encode()
}

func readerDSN(path string) string {
	q := pragmas(false)
	q.Set("mode", "ro")
	return "file:" + path + "?" + q.Encode()
}

func pragmas(writer bool) url.Values {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", defaultBusyTimeout.Milliseconds()))
	q.Set("_foreign_keys", "on")
	q.Set("_synchronous", "NORMAL")
	if writer {
		q.Set("_journal_mode", "WAL")
		q.Set("_txlock", "immediate")
	}
	return q
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database after open failure", "error", err)
	}
}
