package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("not found")

// DefaultBulkThreshold is the row count at which a bulk operation drops
// secondary indexes and FTS triggers for its duration.
const DefaultBulkThreshold = 256

// SchemaVersion is recorded in the metadata table by Migrate.
const SchemaVersion = "1"

// Store is the SQLite data access layer for the symbol graph. Writes are
// serialised through a single mutex; reads use the connection pool
// concurrently under WAL isolation.
type Store struct {
	db            *sql.DB
	writeMu       sync.Mutex
	bulkThreshold int
}

// Option configures a Store.
type Option func(*Store)

// WithBulkThreshold sets the row count at which bulk operations switch to
// the drop-and-rebuild path. Zero or less disables it.
func WithBulkThreshold(n int) Option {
	return func(s *Store) {
		s.bulkThreshold = n
	}
}

// NewStore opens a SQLite database at dbPath with WAL mode, foreign keys
// and immediate write transactions.
func NewStore(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, bulkThreshold: DefaultBulkThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables, FTS mirrors, triggers and indexes. Idempotent.
func (s *Store) Migrate() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, table := range derivedTables {
		if err := createDerived(tx, table); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, MetaSchemaVersion, SchemaVersion,
	); err != nil {
		return fmt.Errorf("migrate: schema version: %w", err)
	}
	return tx.Commit()
}

// withWriteTx runs fn inside a write transaction under the writer mutex.
// Any error from fn rolls the whole transaction back, DDL included.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  path            TEXT PRIMARY KEY,
  content         TEXT,
  hash            TEXT NOT NULL,
  language        TEXT NOT NULL,
  size            INTEGER NOT NULL DEFAULT 0,
  created_at      TIMESTAMP NOT NULL,
  updated_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  language        TEXT NOT NULL,
  file_path       TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
  start_line      INTEGER NOT NULL,
  start_column    INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  end_column      INTEGER NOT NULL,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  signature       TEXT,
  visibility      TEXT,
  parent_id       TEXT,
  doc_comment     TEXT,
  metadata        TEXT
);

CREATE TABLE IF NOT EXISTS relationships (
  id              TEXT PRIMARY KEY,
  from_symbol_id  TEXT NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  to_symbol_id    TEXT NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  line_number     INTEGER NOT NULL,
  confidence      REAL NOT NULL,
  metadata        TEXT
);

CREATE TABLE IF NOT EXISTS pending_relationships (
  id              INTEGER PRIMARY KEY,
  from_symbol_id  TEXT NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  callee_name     TEXT NOT NULL,
  kind            TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  line_number     INTEGER NOT NULL,
  confidence      REAL NOT NULL,
  attempts        INTEGER NOT NULL DEFAULT 0,
  created_at      TIMESTAMP NOT NULL,
  UNIQUE (from_symbol_id, callee_name, kind, line_number)
);

CREATE TABLE IF NOT EXISTS scans (
  id              TEXT PRIMARY KEY,
  root            TEXT NOT NULL,
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  status          TEXT NOT NULL,
  files_indexed   INTEGER NOT NULL DEFAULT 0,
  files_skipped   INTEGER NOT NULL DEFAULT 0,
  files_failed    INTEGER NOT NULL DEFAULT 0,
  symbols_total   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

-- Lookup indexes behind cascades and demotion; never dropped by bulk writes.
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_symbol_id);
CREATE INDEX IF NOT EXISTS idx_pending_from ON pending_relationships(from_symbol_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts4(name, signature, doc_comment, tokenize=porter);
CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts4(path, content, tokenize=porter);
`
