// Package store keeps a SQLite history of metric refreshes and the extract
// files each one saw.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/source"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout is fixed-width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// History provides SQLite-backed refresh history.
type History struct {
	db *sql.DB
}

// RefreshRecord is one stored refresh attempt.
type RefreshRecord struct {
	ID        string        `json:"refresh_id"`
	Trigger   string        `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	Counts    cache.Counts  `json:"counts"`
	Coerced   int           `json:"coerced_fields"`
}

// RecordFromResult converts a cache refresh result.
func RecordFromResult(res cache.RefreshResult) RefreshRecord {
	return RefreshRecord{
		ID:        res.ID,
		Trigger:   res.Trigger,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		OK:        res.OK,
		Error:     res.Error,
		Counts:    res.Counts,
		Coerced:   res.Coerced,
	}
}

// Open opens or creates the history database at the given path and migrates it.
func Open(dbPath string) (*History, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores one refresh attempt. Recording the same ID twice replaces it.
func (h *History) Record(ctx context.Context, r RefreshRecord) error {
	ok := 0
	if r.OK {
		ok = 1
	}
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}

	_, err := h.db.ExecContext(ctx, `INSERT OR REPLACE INTO refresh_runs
		(refresh_id, refresh_trigger, started_at, duration_ms, ok, error,
		 jobs, ar_invoices, ap_invoices, pms, customers, vendors, coerced_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Trigger, r.StartedAt.UTC().Format(timeLayout), r.Duration.Milliseconds(), ok, errText,
		r.Counts.Jobs, r.Counts.AR, r.Counts.AP, r.Counts.PMs, r.Counts.Customers, r.Counts.Vendors, r.Coerced,
	)
	if err != nil {
		return fmt.Errorf("recording refresh %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit refreshes, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]RefreshRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `SELECT
		refresh_id, refresh_trigger, started_at, duration_ms, ok, error,
		jobs, ar_invoices, ap_invoices, pms, customers, vendors, coerced_fields
		FROM refresh_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RefreshRecord
	for rows.Next() {
		var r RefreshRecord
		var started string
		var durMs int64
		var ok int
		var errText sql.NullString
		err := rows.Scan(&r.ID, &r.Trigger, &started, &durMs, &ok, &errText,
			&r.Counts.Jobs, &r.Counts.AR, &r.Counts.AP, &r.Counts.PMs, &r.Counts.Customers, &r.Counts.Vendors, &r.Coerced)
		if err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.OK = ok != 0
		if errText.Valid {
			r.Error = errText.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep refreshes and deletes the rest.
func (h *History) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := h.db.ExecContext(ctx, `DELETE FROM refresh_runs WHERE refresh_id NOT IN
		(SELECT refresh_id FROM refresh_runs ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

// Counts returns the number of stored refreshes and how many failed.
func (h *History) Counts(ctx context.Context) (total, failed int, err error) {
	err = h.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), 0) FROM refresh_runs",
	).Scan(&total, &failed)
	return total, failed, err
}

// SaveFiles records the fingerprint of every extract file.
func (h *History) SaveFiles(ctx context.Context, states []source.FileState) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, st := range states {
		missing := 0
		if st.Missing {
			missing = 1
		}
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO extract_files
			(file_path, mtime_ns, size_bytes, missing, seen_at)
			VALUES (?, ?, ?, ?, ?)`, st.Path, st.MtimeNs, st.SizeBytes, missing, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TrackedFiles returns the last recorded fingerprint of every extract file.
func (h *History) TrackedFiles(ctx context.Context) (map[string]source.FileState, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT file_path, mtime_ns, size_bytes, missing FROM extract_files")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]source.FileState)
	for rows.Next() {
		var st source.FileState
		var missing int
		if err := rows.Scan(&st.Path, &st.MtimeNs, &st.SizeBytes, &missing); err != nil {
			return nil, err
		}
		st.Missing = missing != 0
		result[st.Path] = st
	}
	return result, rows.Err()
}

// Hook returns a cache hook that records every refresh attempt and trims the
// table to keep rows. Storage errors are logged, never returned to the cache.
func (h *History) Hook(log zerolog.Logger, keep int) cache.Hook {
	return func(ctx context.Context, res cache.RefreshResult) {
		if err := h.Record(ctx, RecordFromResult(res)); err != nil {
			log.Warn().Err(err).Msg("history write failed")
			return
		}
		if n, err := h.Prune(ctx, keep); err != nil {
			log.Warn().Err(err).Msg("history prune failed")
		} else if n > 0 {
			log.Debug().Int64("removed", n).Msg("history pruned")
		}
	}
}
