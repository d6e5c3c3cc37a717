package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata keys.
const (
	MetaSchemaVersion    = "schema_version"
	MetaLastCompleteScan = "last_complete_scan"
	MetaScriptsHash      = "scripts_hash"
)

// BeginScan records a running scan of root and returns its id.
func (s *Store) BeginScan(ctx context.Context, root string) (string, error) {
	id := uuid.NewString()
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO scans (id, root, started_at, status) VALUES (?, ?, ?, ?)",
			id, root, time.Now().UTC(), ScanRunning,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("begin scan: %w", err)
	}
	return id, nil
}

// FinishScan closes a scan row with its final status and counters. It takes
// no context: a cancelled scan is still recorded.
func (s *Store) FinishScan(run ScanRun) error {
	err := s.withWriteTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE scans SET finished_at = ?, status = ?, files_indexed = ?, files_skipped = ?,
			   files_failed = ?, symbols_total = ?
			 WHERE id = ?`,
			time.Now().UTC(), run.Status, run.FilesIndexed, run.FilesSkipped,
			run.FilesFailed, run.SymbolsTotal, run.ID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("finish scan %s: %w", run.ID, err)
	}
	return nil
}

// Scans returns the most recent scan runs, newest first.
func (s *Store) Scans(ctx context.Context, limit int) ([]ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, started_at, finished_at, status, files_indexed, files_skipped, files_failed, symbols_total
		 FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()
	var runs []ScanRun
	for rows.Next() {
		var (
			r        ScanRun
			finished sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Root, &r.StartedAt, &finished, &r.Status,
			&r.FilesIndexed, &r.FilesSkipped, &r.FilesFailed, &r.SymbolsTotal); err != nil {
			return nil, fmt.Errorf("scan scan run: %w", err)
		}
		r.FinishedAt = finished.Time
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetMetadata returns a metadata value, or ErrNotFound.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("metadata %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return v, nil
}

// SetMetadata upserts a metadata value.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return setMetadataTx(tx, key, value)
	})
}

func setMetadataTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
