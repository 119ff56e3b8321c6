// Package status provides the sync progress record and its crash-safe persistence.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

//go:generate mockgen -destination=mocks/mock_progress_store.go -package=mocks -source=persistence.go ProgressStore

const (
	// BackupSuffix is appended to the state file name for the backup copy
	BackupSuffix = ".bak"

	tempSuffix = ".tmp"
)

// ErrInvalidProgress is returned when a state file parses but fails validation
var ErrInvalidProgress = errors.New("invalid progress record")

// LoadSource tells where a loaded progress record came from
type LoadSource string

const (
	// LoadedPrimary means the primary state file was valid
	LoadedPrimary LoadSource = "primary"

	// LoadedBackup means the primary was missing or invalid and the backup was used
	LoadedBackup LoadSource = "backup"

	// LoadedFresh means no usable file was found and a new record was created
	LoadedFresh LoadSource = "fresh"
)

// ProgressStore persists the sync progress record
type ProgressStore interface {
	// Save writes the record atomically, replacing the primary file
	Save(ctx context.Context, progress *SyncProgress) error

	// Load reads the primary file, falling back to the backup and then to a
	// fresh record. Missing and corrupt files are recovered from; any other
	// read failure is returned when no file could be used.
	Load(ctx context.Context) (*SyncProgress, LoadSource, error)

	// Backup copies the current primary file over the backup
	Backup(ctx context.Context) error
}

// fileProgressStore implements ProgressStore on the local filesystem
type fileProgressStore struct {
	path string
}

// NewFileProgressStore creates a progress store writing to path, with the
// backup kept next to it
func NewFileProgressStore(path string) ProgressStore {
	return &fileProgressStore{path: path}
}

func (f *fileProgressStore) backupPath() string {
	return f.path + BackupSuffix
}

// Save marshals the record and replaces the state file with a rename
func (f *fileProgressStore) Save(_ context.Context, progress *SyncProgress) error {
	if progress == nil {
		return fmt.Errorf("progress record is required")
	}
	if err := progress.validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}

	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("failed to save progress record: %w", err)
	}
	return nil
}

// Load implements the primary, backup, fresh recovery order
func (f *fileProgressStore) Load(_ context.Context) (*SyncProgress, LoadSource, error) {
	progress, primaryErr := readProgress(f.path)
	if primaryErr == nil {
		slog.Debug("Loaded progress record", "path", f.path)
		return progress, LoadedPrimary, nil
	}
	if !errors.Is(primaryErr, fs.ErrNotExist) {
		slog.Warn("Failed to load progress record, trying backup", "path", f.path, "error", primaryErr)
	}

	progress, backupErr := readProgress(f.backupPath())
	if backupErr == nil {
		slog.Warn("Restored progress record from backup", "path", f.backupPath())
		return progress, LoadedBackup, nil
	}

	if unreadable(primaryErr) || unreadable(backupErr) {
		return nil, "", fmt.Errorf("progress record is unreadable: %w", errors.Join(primaryErr, backupErr))
	}

	if errors.Is(primaryErr, fs.ErrNotExist) && errors.Is(backupErr, fs.ErrNotExist) {
		slog.Info("No progress record found, starting fresh", "path", f.path)
	} else {
		slog.Error("No valid progress record found, starting fresh",
			"path", f.path, "error", errors.Join(primaryErr, backupErr))
	}
	return &SyncProgress{}, LoadedFresh, nil
}

// Backup copies the primary file to the backup location through a rename
func (f *fileProgressStore) Backup(_ context.Context) error {
	// #nosec G304 -- path comes from the storage configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Cannot back up missing progress record", "path", f.path)
			return nil
		}
		return fmt.Errorf("failed to read progress record for backup: %w", err)
	}

	if err := writeFileAtomic(f.backupPath(), data); err != nil {
		return fmt.Errorf("failed to write progress backup: %w", err)
	}
	return nil
}

// readProgress reads and validates one state file
func readProgress(path string) (*SyncProgress, error) {
	// #nosec G304 -- path comes from the storage configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var progress SyncProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgress, err)
	}
	if err := progress.validate(); err != nil {
		return nil, err
	}
	return &progress, nil
}

// validateDocument checks the structure of the document before it is decoded:
// it must be a JSON object carrying integer page and highest id fields.
func validateDocument(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidProgress)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return fmt.Errorf("%w: not a JSON object", ErrInvalidProgress)
	}
	for _, key := range []string{"last_tvmaze_page", "highest_tvmaze_id"} {
		field := doc.Get(key)
		if !field.Exists() {
			return fmt.Errorf("%w: missing %s", ErrInvalidProgress, key)
		}
		if field.Type != gjson.Number || float64(field.Int()) != field.Num {
			return fmt.Errorf("%w: %s must be an integer", ErrInvalidProgress, key)
		}
	}
	return nil
}

func (p *SyncProgress) validate() error {
	if p.PageCursor < 0 {
		return fmt.Errorf("%w: page cursor %d is negative", ErrInvalidProgress, p.PageCursor)
	}
	if p.HighestTVMazeID < 0 {
		return fmt.Errorf("%w: highest id %d is negative", ErrInvalidProgress, p.HighestTVMazeID)
	}
	if p.ConsecutiveFailures < 0 {
		return fmt.Errorf("%w: failure count %d is negative", ErrInvalidProgress, p.ConsecutiveFailures)
	}
	return nil
}

// unreadable reports whether err is an I/O failure rather than absence or corruption
func unreadable(err error) bool {
	return !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, ErrInvalidProgress)
}

// writeFileAtomic writes data to a temporary file, syncs it and renames it over path
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempPath := path + tempSuffix
	// #nosec G304 -- path comes from the storage configuration
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
