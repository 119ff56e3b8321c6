package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"k8s.io/utils/clock"

	"github.com/stacklok/tvmaze-sync/internal/db"
)

// ErrNotCached is returned by state transitions on a show that is not in the cache
var ErrNotCached = errors.New("show is not cached")

const showColumns = `tvmaze_id, tvdb_id, imdb_id, title, language, country, type, status,
	premiered, ended, network, web_channel, genres, rating, runtime,
	processing_status, filter_reason, sonarr_series_id, added_to_sonarr_at,
	last_checked, tvmaze_updated_at, retry_after, retry_count, pending_since,
	error_message, created_at, updated_at`

const upsertShowSQL = `
INSERT INTO shows (
	tvmaze_id, tvdb_id, imdb_id, title, language, country, type, status,
	premiered, ended, network, web_channel, genres, rating, runtime,
	processing_status, last_checked, tvmaze_updated_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?)
ON CONFLICT(tvmaze_id) DO UPDATE SET
	tvdb_id = excluded.tvdb_id,
	imdb_id = excluded.imdb_id,
	title = excluded.title,
	language = excluded.language,
	country = excluded.country,
	type = excluded.type,
	status = excluded.status,
	premiered = excluded.premiered,
	ended = excluded.ended,
	network = excluded.network,
	web_channel = excluded.web_channel,
	genres = excluded.genres,
	rating = excluded.rating,
	runtime = excluded.runtime,
	last_checked = excluded.last_checked,
	tvmaze_updated_at = excluded.tvmaze_updated_at,
	updated_at = excluded.updated_at`

// Leaving pending_tvdb clears the retry bookkeeping
const clearRetry = `retry_after = NULL, retry_count = 0, pending_since = NULL`

// DefaultBusyRetries is how many times a write is repeated after the
// database stayed locked for the whole busy timeout
const DefaultBusyRetries = 3

type sqliteStore struct {
	conn        *db.Connection
	clock       clock.PassiveClock
	batchSize   int
	busyRetries uint
	newBackOff  func() backoff.BackOff
}

// StoreOption configures the SQLite store
type StoreOption func(*sqliteStore)

// WithClock sets the clock used for modification timestamps
func WithClock(c clock.PassiveClock) StoreOption {
	return func(s *sqliteStore) {
		s.clock = c
	}
}

// WithStreamBatchSize sets the page size used by the streaming reads
func WithStreamBatchSize(n int) StoreOption {
	return func(s *sqliteStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBusyRetries sets how many times a write that found the database locked
// is repeated and the backoff policy between attempts
func WithBusyRetries(retries uint, newBackOff func() backoff.BackOff) StoreOption {
	return func(s *sqliteStore) {
		s.busyRetries = retries
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}

func defaultBusyBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// NewSQLiteStore creates a Store backed by an already migrated database
func NewSQLiteStore(conn *db.Connection, opts ...StoreOption) Store {
	s := &sqliteStore{
		conn:        conn,
		clock:       clock.RealClock{},
		batchSize:   DefaultStreamBatchSize,
		busyRetries: DefaultBusyRetries,
		newBackOff:  defaultBusyBackOff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sqliteStore) now() int64 {
	return s.clock.Now().UTC().Unix()
}

// wrap annotates err with the failed operation and marks corruption
func wrap(op string, err error) error {
	if db.IsCorruption(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrCorrupt, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// retryBusy repeats write while the database reports lock contention.
// Any other error is returned as is.
func retryBusy[T any](ctx context.Context, s *sqliteStore, write func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := write()
		if err == nil || !db.IsBusy(err) {
			return res, backoff.Permanent(err)
		}
		slog.Warn("Show cache is locked, retrying write",
			"attempt", attempt,
			"max_attempts", s.busyRetries+1,
			"error", err)
		return res, err
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.busyRetries+1),
	)
}

func (s *sqliteStore) Upsert(ctx context.Context, show *Show) error {
	args, err := s.upsertArgs(show)
	if err != nil {
		return err
	}
	_, err = retryBusy(ctx, s, func() (sql.Result, error) {
		return s.conn.Writer.ExecContext(ctx, upsertShowSQL, args...)
	})
	if err != nil {
		return wrap(fmt.Sprintf("upsert show %d", show.ID), err)
	}
	return nil
}

func (s *sqliteStore) BulkUpsert(ctx context.Context, shows []*Show) (int, error) {
	if len(shows) == 0 {
		return 0, nil
	}
	return retryBusy(ctx, s, func() (int, error) {
		return s.bulkUpsert(ctx, shows)
	})
}

// bulkUpsert writes shows in a single transaction
func (s *sqliteStore) bulkUpsert(ctx context.Context, shows []*Show) (int, error) {

	tx, err := s.conn.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrap("begin bulk upsert", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertShowSQL)
	if err != nil {
		return 0, wrap("prepare bulk upsert", err)
	}
	defer stmt.Close()

	for _, show := range shows {
		args, err := s.upsertArgs(show)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, wrap(fmt.Sprintf("bulk upsert show %d", show.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrap("commit bulk upsert", err)
	}
	return len(shows), nil
}

func (s *sqliteStore) upsertArgs(show *Show) ([]any, error) {
	if show == nil || show.ID <= 0 {
		return nil, fmt.Errorf("%w: show id is required", ErrInvalidShow)
	}
	genres := show.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genres for show %d: %w", show.ID, err)
	}

	now := s.now()
	return []any{
		show.ID,
		nullInt64(show.TVDBID),
		nullString(show.IMDBID),
		show.Title,
		nullString(show.Language),
		nullString(show.Country),
		nullString(show.Type),
		nullString(show.Status),
		nullDate(show.Premiered),
		nullDate(show.Ended),
		nullString(show.Network),
		nullString(show.WebChannel),
		string(genresJSON),
		nullFloat64(show.Rating),
		nullInt(show.Runtime),
		now,
		show.UpdatedAt,
		now,
		now,
	}, nil
}

func (s *sqliteStore) Get(ctx context.Context, id int64) (*Record, bool, error) {
	row := s.conn.Reader.QueryRowContext(ctx,
		"SELECT "+showColumns+" FROM shows WHERE tvmaze_id = ?", id)
	return scanOne(row, fmt.Sprintf("get show %d", id))
}

func (s *sqliteStore) GetByTVDB(ctx context.Context, tvdbID int64) (*Record, bool, error) {
	row := s.conn.Reader.QueryRowContext(ctx,
		"SELECT "+showColumns+" FROM shows WHERE tvdb_id = ? ORDER BY tvmaze_id LIMIT 1", tvdbID)
	return scanOne(row, fmt.Sprintf("get show by tvdb %d", tvdbID))
}

func scanOne(row *sql.Row, op string) (*Record, bool, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(op, err)
	}
	return rec, true, nil
}

func (s *sqliteStore) ListByState(ctx context.Context, state State, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = s.batchSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.query(ctx, fmt.Sprintf("list %s shows", state),
		"SELECT "+showColumns+" FROM shows WHERE processing_status = ? ORDER BY tvmaze_id LIMIT ? OFFSET ?",
		string(state), limit, offset)
}

func (s *sqliteStore) StreamByState(ctx context.Context, state State, fn func(*Record) error) error {
	return s.stream(ctx, fmt.Sprintf("stream %s shows", state),
		"SELECT "+showColumns+" FROM shows WHERE processing_status = ? AND tvmaze_id > ? ORDER BY tvmaze_id LIMIT ?",
		[]any{string(state)}, fn)
}

func (s *sqliteStore) StreamWithTVDB(ctx context.Context, fn func(*Record) error) error {
	return s.stream(ctx, "stream shows with tvdb id",
		"SELECT "+showColumns+" FROM shows WHERE tvdb_id IS NOT NULL AND tvmaze_id > ? ORDER BY tvmaze_id LIMIT ?",
		nil, fn)
}

// stream runs a keyset-paginated query. The query must end with
// "tvmaze_id > ? ORDER BY tvmaze_id LIMIT ?". Each batch is fully read and
// its cursor closed before fn runs, so fn is free to write to the store.
func (s *sqliteStore) stream(ctx context.Context, op, query string, args []any, fn func(*Record) error) error {
	var lastID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageArgs := append(append([]any{}, args...), lastID, s.batchSize)
		batch, err := s.query(ctx, op, query, pageArgs...)
		if err != nil {
			return err
		}

		for _, rec := range batch {
			if err := fn(rec); err != nil {
				return err
			}
		}

		if len(batch) < s.batchSize {
			return nil
		}
		lastID = batch[len(batch)-1].ID
	}
}

func (s *sqliteStore) query(ctx context.Context, op, query string, args ...any) ([]*Record, error) {
	rows, err := s.conn.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

func (s *sqliteStore) StateCounts(ctx context.Context) (map[State]int, error) {
	rows, err := s.conn.Reader.QueryContext(ctx,
		"SELECT processing_status, COUNT(*) FROM shows GROUP BY processing_status")
	if err != nil {
		return nil, wrap("count states", err)
	}
	defer rows.Close()

	counts := make(map[State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, wrap("count states", err)
		}
		counts[State(state)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("count states", err)
	}
	return counts, nil
}

func (s *sqliteStore) FilterReasonCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.conn.Reader.QueryContext(ctx, `
		SELECT filter_reason, COUNT(*) FROM shows
		WHERE processing_status = ? AND filter_reason IS NOT NULL
		GROUP BY filter_reason`, string(StateFiltered))
	if err != nil {
		return nil, wrap("count filter reasons", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, wrap("count filter reasons", err)
		}
		counts[CategoryOf(reason)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("count filter reasons", err)
	}
	return counts, nil
}

func (s *sqliteStore) RetryCounts(ctx context.Context) (map[int]int, error) {
	rows, err := s.conn.Reader.QueryContext(ctx, `
		SELECT retry_count, COUNT(*) FROM shows
		WHERE processing_status = ?
		GROUP BY retry_count`, string(StatePendingTVDB))
	if err != nil {
		return nil, wrap("count retries", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var retries, count int
		if err := rows.Scan(&retries, &count); err != nil {
			return nil, wrap("count retries", err)
		}
		counts[retries] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("count retries", err)
	}
	return counts, nil
}

func (s *sqliteStore) RetryDueCount(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.conn.Reader.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shows
		WHERE processing_status = ? AND retry_after IS NOT NULL AND retry_after <= ?`,
		string(StatePendingTVDB), now.UTC().Unix()).Scan(&count)
	if err != nil {
		return 0, wrap("count due retries", err)
	}
	return count, nil
}

func (s *sqliteStore) HighestID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.conn.Reader.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(tvmaze_id), 0) FROM shows").Scan(&id); err != nil {
		return 0, wrap("highest id", err)
	}
	return id, nil
}

func (s *sqliteStore) TotalCount(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows").Scan(&count); err != nil {
		return 0, wrap("total count", err)
	}
	return count, nil
}

func (s *sqliteStore) ShowsForRetry(ctx context.Context, now time.Time, abandonAfter time.Duration) ([]*Record, error) {
	cutoff := now.Add(-abandonAfter).UTC().Unix()
	return s.query(ctx, "shows for retry", `
		SELECT `+showColumns+` FROM shows
		WHERE processing_status = ?
		AND retry_after IS NOT NULL AND retry_after <= ?
		AND (pending_since IS NULL OR pending_since > ?)
		ORDER BY tvmaze_id`,
		string(StatePendingTVDB), now.UTC().Unix(), cutoff)
}

func (s *sqliteStore) ShowsToAbandon(ctx context.Context, now time.Time, abandonAfter time.Duration) ([]*Record, error) {
	cutoff := now.Add(-abandonAfter).UTC().Unix()
	return s.query(ctx, "shows to abandon", `
		SELECT `+showColumns+` FROM shows
		WHERE processing_status = ?
		AND retry_after IS NOT NULL AND retry_after <= ?
		AND pending_since IS NOT NULL AND pending_since <= ?
		ORDER BY tvmaze_id`,
		string(StatePendingTVDB), now.UTC().Unix(), cutoff)
}

func (s *sqliteStore) MarkAdded(ctx context.Context, id int64, sonarrID int64) error {
	now := s.now()
	return s.transition(ctx, id, "mark added", `
		UPDATE shows SET
			processing_status = 'added',
			sonarr_series_id = COALESCE(sonarr_series_id, ?),
			added_to_sonarr_at = COALESCE(added_to_sonarr_at, ?),
			filter_reason = NULL,
			error_message = NULL,
			`+clearRetry+`,
			updated_at = ?
		WHERE tvmaze_id = ?`, sonarrID, now, now, id)
}

func (s *sqliteStore) MarkExists(ctx context.Context, id int64, sonarrID *int64) error {
	return s.transition(ctx, id, "mark exists", `
		UPDATE shows SET
			processing_status = 'exists',
			sonarr_series_id = COALESCE(sonarr_series_id, ?),
			filter_reason = NULL,
			error_message = NULL,
			`+clearRetry+`,
			updated_at = ?
		WHERE tvmaze_id = ?`, nullInt64(sonarrID), s.now(), id)
}

func (s *sqliteStore) MarkFiltered(ctx context.Context, id int64, reason, category string) error {
	return s.transition(ctx, id, "mark filtered", `
		UPDATE shows SET
			processing_status = 'filtered',
			filter_reason = ?,
			error_message = NULL,
			`+clearRetry+`,
			updated_at = ?
		WHERE tvmaze_id = ?`, FormatReason(category, reason), s.now(), id)
}

func (s *sqliteStore) MarkPendingTVDB(ctx context.Context, id int64, retryAfter, now time.Time) error {
	return s.transition(ctx, id, "mark pending tvdb", `
		UPDATE shows SET
			processing_status = 'pending_tvdb',
			retry_after = ?,
			pending_since = COALESCE(pending_since, ?),
			filter_reason = NULL,
			error_message = NULL,
			updated_at = ?
		WHERE tvmaze_id = ?`, retryAfter.UTC().Unix(), now.UTC().Unix(), s.now(), id)
}

func (s *sqliteStore) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.transition(ctx, id, "mark failed", `
		UPDATE shows SET
			processing_status = 'failed',
			filter_reason = NULL,
			error_message = ?,
			`+clearRetry+`,
			updated_at = ?
		WHERE tvmaze_id = ?`, message, s.now(), id)
}

func (s *sqliteStore) MarkPending(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "mark pending", `
		UPDATE shows SET
			processing_status = 'pending',
			filter_reason = NULL,
			error_message = NULL,
			`+clearRetry+`,
			updated_at = ?
		WHERE tvmaze_id = ?`, s.now(), id)
}

func (s *sqliteStore) MarkSkipped(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "mark skipped", `
		UPDATE shows SET
			processing_status = 'skipped',
			filter_reason = NULL,
			error_message = NULL,
			`+clearRetry+`,
			updated_at = ?
		WHERE tvmaze_id = ?`, s.now(), id)
}

func (s *sqliteStore) IncrementRetry(ctx context.Context, id int64) (int, error) {
	count, err := retryBusy(ctx, s, func() (int, error) {
		var count int
		err := s.conn.Writer.QueryRowContext(ctx, `
			UPDATE shows SET retry_count = retry_count + 1, updated_at = ?
			WHERE tvmaze_id = ? AND processing_status = 'pending_tvdb'
			RETURNING retry_count`, s.now(), id).Scan(&count)
		return count, err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment retry for show %d: %w", id, ErrNotCached)
	}
	if err != nil {
		return 0, wrap(fmt.Sprintf("increment retry for show %d", id), err)
	}
	return count, nil
}

func (s *sqliteStore) transition(ctx context.Context, id int64, op, query string, args ...any) error {
	res, err := retryBusy(ctx, s, func() (sql.Result, error) {
		return s.conn.Writer.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return wrap(fmt.Sprintf("%s for show %d", op, id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(fmt.Sprintf("%s for show %d", op, id), err)
	}
	if n == 0 {
		return fmt.Errorf("%s for show %d: %w", op, id, ErrNotCached)
	}
	return nil
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *sqliteStore) Close() error {
	return s.conn.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec                                    Record
		tvdbID, runtime, sonarrID              sql.NullInt64
		imdbID, language, country, showType    sql.NullString
		status, premiered, ended, network      sql.NullString
		webChannel, filterReason, errorMessage sql.NullString
		rating                                 sql.NullFloat64
		addedAt, retryAfter, pendingSince      sql.NullInt64
		genres, state                          string
		lastChecked, createdAt, modifiedAt     int64
	)

	err := row.Scan(
		&rec.ID, &tvdbID, &imdbID, &rec.Title, &language, &country, &showType, &status,
		&premiered, &ended, &network, &webChannel, &genres, &rating, &runtime,
		&state, &filterReason, &sonarrID, &addedAt,
		&lastChecked, &rec.Show.UpdatedAt, &retryAfter, &rec.RetryCount, &pendingSince,
		&errorMessage, &createdAt, &modifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if tvdbID.Valid {
		rec.TVDBID = &tvdbID.Int64
	}
	if runtime.Valid {
		v := int(runtime.Int64)
		rec.Runtime = &v
	}
	if rating.Valid {
		rec.Rating = &rating.Float64
	}
	if sonarrID.Valid {
		rec.SonarrID = &sonarrID.Int64
	}
	rec.IMDBID = imdbID.String
	rec.Language = language.String
	rec.Country = country.String
	rec.Type = showType.String
	rec.Status = status.String
	rec.Network = network.String
	rec.WebChannel = webChannel.String
	rec.Premiered = parseStoredDate(premiered)
	rec.Ended = parseStoredDate(ended)

	rec.Genres = []string{}
	if genres != "" {
		if err := json.Unmarshal([]byte(genres), &rec.Genres); err != nil {
			return nil, fmt.Errorf("failed to decode genres of show %d: %w", rec.ID, err)
		}
	}

	rec.State = State(state)
	rec.FilterReason = filterReason.String
	rec.ErrorMessage = errorMessage.String
	rec.AddedAt = fromNullUnix(addedAt)
	rec.RetryAfter = fromNullUnix(retryAfter)
	rec.PendingSince = fromNullUnix(pendingSince)
	rec.LastChecked = time.Unix(lastChecked, 0).UTC()
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.ModifiedAt = time.Unix(modifiedAt, 0).UTC()

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(DateLayout), Valid: true}
}

func parseStoredDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(DateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
