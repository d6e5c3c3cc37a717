package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anortham/julie-sub010/internal/graph"
)

// derived lists the objects that hang off a table and are rebuilt rather
// than maintained row by row during bulk operations.
type derived struct {
	indexes  map[string]string // name -> CREATE statement
	triggers map[string]string
	// rebuild repopulates the table's FTS mirror from scratch.
	rebuild []string
}

const (
	tableFiles         = "files"
	tableSymbols       = "symbols"
	tableRelationships = "relationships"
	tablePending       = "pending_relationships"
)

var derivedTables = []string{tableFiles, tableSymbols, tableRelationships, tablePending}

var derivedByTable = map[string]derived{
	tableFiles: {
		indexes: map[string]string{
			"idx_files_language": `CREATE INDEX IF NOT EXISTS idx_files_language ON files(language)`,
		},
		triggers: map[string]string{
			"files_fts_ai": `CREATE TRIGGER IF NOT EXISTS files_fts_ai AFTER INSERT ON files BEGIN
  INSERT INTO files_fts(docid, path, content) VALUES (new.rowid, new.path, new.content);
END`,
			"files_fts_ad": `CREATE TRIGGER IF NOT EXISTS files_fts_ad AFTER DELETE ON files BEGIN
  DELETE FROM files_fts WHERE docid = old.rowid;
END`,
			"files_fts_au": `CREATE TRIGGER IF NOT EXISTS files_fts_au AFTER UPDATE ON files BEGIN
  DELETE FROM files_fts WHERE docid = old.rowid;
  INSERT INTO files_fts(docid, path, content) VALUES (new.rowid, new.path, new.content);
END`,
		},
		rebuild: []string{
			`DELETE FROM files_fts`,
			`INSERT INTO files_fts(docid, path, content) SELECT rowid, path, content FROM files`,
		},
	},
	tableSymbols: {
		indexes: map[string]string{
			"idx_symbols_name":   `CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)`,
			"idx_symbols_parent": `CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id)`,
			"idx_symbols_kind":   `CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)`,
		},
		triggers: map[string]string{
			"symbols_fts_ai": `CREATE TRIGGER IF NOT EXISTS symbols_fts_ai AFTER INSERT ON symbols BEGIN
  INSERT INTO symbols_fts(docid, name, signature, doc_comment)
  VALUES (new.rowid, new.name, new.signature, new.doc_comment);
END`,
			"symbols_fts_ad": `CREATE TRIGGER IF NOT EXISTS symbols_fts_ad AFTER DELETE ON symbols BEGIN
  DELETE FROM symbols_fts WHERE docid = old.rowid;
END`,
			"symbols_fts_au": `CREATE TRIGGER IF NOT EXISTS symbols_fts_au AFTER UPDATE ON symbols BEGIN
  DELETE FROM symbols_fts WHERE docid = old.rowid;
  INSERT INTO symbols_fts(docid, name, signature, doc_comment)
  VALUES (new.rowid, new.name, new.signature, new.doc_comment);
END`,
		},
		rebuild: []string{
			`DELETE FROM symbols_fts`,
			`INSERT INTO symbols_fts(docid, name, signature, doc_comment)
			 SELECT rowid, name, signature, doc_comment FROM symbols`,
		},
	},
	tableRelationships: {
		indexes: map[string]string{
			"idx_relationships_file": `CREATE INDEX IF NOT EXISTS idx_relationships_file ON relationships(file_path)`,
			"idx_relationships_kind": `CREATE INDEX IF NOT EXISTS idx_relationships_kind ON relationships(kind)`,
		},
	},
	tablePending: {
		indexes: map[string]string{
			"idx_pending_callee": `CREATE INDEX IF NOT EXISTS idx_pending_callee ON pending_relationships(callee_name)`,
		},
	},
}

func createDerived(tx *sql.Tx, table string) error {
	d := derivedByTable[table]
	for name, stmt := range d.indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	for name, stmt := range d.triggers {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create trigger %s: %w", name, err)
		}
	}
	return nil
}

func dropDerived(tx *sql.Tx, table string) error {
	d := derivedByTable[table]
	for name := range d.triggers {
		if _, err := tx.Exec("DROP TRIGGER IF EXISTS " + name); err != nil {
			return fmt.Errorf("drop trigger %s: %w", name, err)
		}
	}
	for name := range d.indexes {
		if _, err := tx.Exec("DROP INDEX IF EXISTS " + name); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

func rebuildMirror(tx *sql.Tx, table string) error {
	for _, stmt := range derivedByTable[table].rebuild {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("rebuild %s mirror: %w", table, err)
		}
	}
	return nil
}

// bulkTables returns the tables whose derived objects a write of rows
// should drop and rebuild: those receiving at least the bulk threshold and
// at least half as many rows as they already hold. MAX(rowid) stands in for
// the table size.
func (s *Store) bulkTables(tx *sql.Tx, rows map[string]int) ([]string, error) {
	if s.bulkThreshold <= 0 {
		return nil, nil
	}
	var out []string
	for _, t := range derivedTables {
		n := rows[t]
		if n < s.bulkThreshold {
			continue
		}
		var size int
		if err := tx.QueryRow("SELECT COALESCE(MAX(rowid), 0) FROM " + t).Scan(&size); err != nil {
			return nil, fmt.Errorf("size %s: %w", t, err)
		}
		if 2*n >= size {
			out = append(out, t)
		}
	}
	return out, nil
}

// bulkWrite runs prepare and then fn in one write transaction. rows counts
// the rows fn writes per table. Tables that qualify for the bulk path have
// their derived objects dropped after prepare, and restored (mirrors
// rebuilt, indexes and triggers recreated) before commit. Deletes belong in
// prepare, where the mirror triggers and indexes are still in place.
func (s *Store) bulkWrite(ctx context.Context, rows map[string]int, prepare, fn func(tx *sql.Tx) error) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if prepare != nil {
			if err := prepare(tx); err != nil {
				return err
			}
		}
		bulk, err := s.bulkTables(tx, rows)
		if err != nil {
			return err
		}
		for _, t := range bulk {
			if err := dropDerived(tx, t); err != nil {
				return err
			}
		}
		if err := fn(tx); err != nil {
			return err
		}
		for _, t := range bulk {
			if err := rebuildMirror(tx, t); err != nil {
				return err
			}
			if err := createDerived(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// StoreFiles upserts file rows in one transaction. created_at survives
// updates.
func (s *Store) StoreFiles(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}
	return s.bulkWrite(ctx, map[string]int{tableFiles: len(files)}, nil, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for i := range files {
			if err := upsertFileTx(tx, &files[i], now); err != nil {
				return fmt.Errorf("store files: %s: %w", files[i].Path, err)
			}
		}
		return nil
	})
}

// StoreSymbols upserts symbols in one transaction. Every symbol's file must
// already be stored; a foreign-key violation aborts the whole batch.
func (s *Store) StoreSymbols(ctx context.Context, syms []graph.Symbol) error {
	if len(syms) == 0 {
		return nil
	}
	return s.bulkWrite(ctx, map[string]int{tableSymbols: len(syms)}, nil, func(tx *sql.Tx) error {
		for i := range syms {
			if err := upsertSymbolTx(tx, &syms[i]); err != nil {
				return fmt.Errorf("store symbols: %q: %w", syms[i].Name, err)
			}
		}
		return nil
	})
}

// StoreRelationships upserts relationships in one transaction. Both ends
// must exist; a foreign-key violation aborts the whole batch.
func (s *Store) StoreRelationships(ctx context.Context, rels []graph.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	return s.bulkWrite(ctx, map[string]int{tableRelationships: len(rels)}, nil, func(tx *sql.Tx) error {
		for i := range rels {
			if err := upsertRelationshipTx(tx, &rels[i]); err != nil {
				return fmt.Errorf("store relationships: %s: %w", rels[i].ID, err)
			}
		}
		return nil
	})
}

// StorePending inserts pending relationships, ignoring rows that duplicate
// an existing (from, callee, kind, line).
func (s *Store) StorePending(ctx context.Context, pending []graph.PendingRelationship) error {
	if len(pending) == 0 {
		return nil
	}
	return s.bulkWrite(ctx, map[string]int{tablePending: len(pending)}, nil, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for i := range pending {
			if err := insertPendingTx(tx, &pending[i], now); err != nil {
				return fmt.Errorf("store pending: %q: %w", pending[i].CalleeName, err)
			}
		}
		return nil
	})
}

// --- Transaction-scoped write helpers ---

func upsertFileTx(tx *sql.Tx, f *File, now time.Time) error {
	created := f.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := f.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	if f.Size == 0 {
		f.Size = int64(len(f.Content))
	}
	_, err := tx.Exec(
		`INSERT INTO files (path, content, hash, language, size, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   content = excluded.content,
		   hash = excluded.hash,
		   language = excluded.language,
		   size = excluded.size,
		   updated_at = excluded.updated_at`,
		f.Path, f.Content, f.Hash, f.Language, f.Size, created, updated,
	)
	return err
}

func upsertSymbolTx(tx *sql.Tx, sym *graph.Symbol) error {
	_, err := tx.Exec(
		`INSERT INTO symbols (id, name, kind, language, file_path, start_line, start_column,
			end_line, end_column, start_byte, end_byte, signature, visibility, parent_id,
			doc_comment, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   kind = excluded.kind,
		   language = excluded.language,
		   file_path = excluded.file_path,
		   start_line = excluded.start_line,
		   start_column = excluded.start_column,
		   end_line = excluded.end_line,
		   end_column = excluded.end_column,
		   start_byte = excluded.start_byte,
		   end_byte = excluded.end_byte,
		   signature = excluded.signature,
		   visibility = excluded.visibility,
		   parent_id = excluded.parent_id,
		   doc_comment = excluded.doc_comment,
		   metadata = excluded.metadata`,
		sym.ID, sym.Name, string(sym.Kind), sym.Language, sym.FilePath,
		sym.StartLine, sym.StartColumn, sym.EndLine, sym.EndColumn, sym.StartByte, sym.EndByte,
		sym.Signature, string(sym.Visibility), nullString(sym.ParentID), sym.DocComment,
		marshalMetadata(sym.Metadata),
	)
	return err
}

func upsertRelationshipTx(tx *sql.Tx, rel *graph.Relationship) error {
	_, err := tx.Exec(
		`INSERT INTO relationships (id, from_symbol_id, to_symbol_id, kind, file_path, line_number, confidence, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   confidence = excluded.confidence,
		   metadata = excluded.metadata`,
		rel.ID, rel.FromSymbolID, rel.ToSymbolID, string(rel.Kind), rel.FilePath, rel.LineNumber,
		graph.ClampConfidence(rel.Confidence), marshalMetadata(rel.Metadata),
	)
	return err
}

func insertPendingTx(tx *sql.Tx, p *graph.PendingRelationship, now time.Time) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := tx.Exec(
		`INSERT INTO pending_relationships (from_symbol_id, callee_name, kind, file_path, line_number, confidence, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(from_symbol_id, callee_name, kind, line_number) DO NOTHING`,
		p.FromSymbolID, p.CalleeName, string(p.Kind), p.FilePath, p.LineNumber,
		graph.ClampConfidence(p.Confidence), p.Attempts, created,
	)
	return err
}
