package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anortham/julie-sub010/internal/graph"
)

// FileSet is everything one file contributes to the graph.
type FileSet struct {
	File          File
	Symbols       []graph.Symbol
	Relationships []graph.Relationship
	Pending       []graph.PendingRelationship
}

func (fs *FileSet) rows() int {
	return 1 + len(fs.Symbols) + len(fs.Relationships) + len(fs.Pending)
}

// replaceRows counts the rows a replace of sets writes into each table.
func replaceRows(sets []FileSet) map[string]int {
	rows := map[string]int{tableFiles: len(sets)}
	for i := range sets {
		rows[tableSymbols] += len(sets[i].Symbols)
		rows[tableRelationships] += len(sets[i].Relationships)
		rows[tablePending] += len(sets[i].Pending)
	}
	return rows
}

// ReplaceFile atomically swaps a file's contribution to the graph.
func (s *Store) ReplaceFile(ctx context.Context, set FileSet) error {
	return s.ReplaceFiles(ctx, []FileSet{set})
}

// ReplaceFiles swaps the contribution of every file in sets inside one
// transaction. First, for each file:
//  1. Relationships from other files into this file's symbols are demoted
//     back to pending rows so they can re-resolve against the new symbols.
//  2. The old symbols are deleted; their relationships and pending rows go
//     with them through ON DELETE CASCADE.
//
// Then, with the bulk path engaged if the set is large enough, each file
// row is upserted (keeping created_at) and the new symbols, relationships
// and pending rows are inserted.
//
// Any failure rolls back every file in the set.
func (s *Store) ReplaceFiles(ctx context.Context, sets []FileSet) error {
	if len(sets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	clearSets := func(tx *sql.Tx) error {
		for i := range sets {
			if err := clearFileTx(tx, sets[i].File.Path, now); err != nil {
				return fmt.Errorf("replace %s: %w", sets[i].File.Path, err)
			}
		}
		return nil
	}
	return s.bulkWrite(ctx, replaceRows(sets), clearSets, func(tx *sql.Tx) error {
		for i := range sets {
			if err := insertFileSetTx(tx, &sets[i], now); err != nil {
				return fmt.Errorf("replace %s: %w", sets[i].File.Path, err)
			}
		}
		return nil
	})
}

// clearFileTx demotes edges into path and deletes its symbols.
func clearFileTx(tx *sql.Tx, path string, now time.Time) error {
	if err := demoteIncomingTx(tx, path, now); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM symbols WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	return nil
}

func insertFileSetTx(tx *sql.Tx, set *FileSet, now time.Time) error {
	if err := upsertFileTx(tx, &set.File, now); err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	for i := range set.Symbols {
		if err := upsertSymbolTx(tx, &set.Symbols[i]); err != nil {
			return fmt.Errorf("symbol %q: %w", set.Symbols[i].Name, err)
		}
	}
	for i := range set.Relationships {
		if err := upsertRelationshipTx(tx, &set.Relationships[i]); err != nil {
			return fmt.Errorf("relationship %s: %w", set.Relationships[i].ID, err)
		}
	}
	for i := range set.Pending {
		if err := insertPendingTx(tx, &set.Pending[i], now); err != nil {
			return fmt.Errorf("pending %q: %w", set.Pending[i].CalleeName, err)
		}
	}
	return nil
}

// demoteIncomingTx turns relationships whose target lives in path and whose
// source lives elsewhere back into pending rows. The callee name and the
// original pending confidence come from the metadata written at promotion.
func demoteIncomingTx(tx *sql.Tx, path string, now time.Time) error {
	_, err := tx.Exec(
		`INSERT INTO pending_relationships
		   (from_symbol_id, callee_name, kind, file_path, line_number, confidence, attempts, created_at)
		 SELECT r.from_symbol_id,
		        COALESCE(json_extract(r.metadata, '$.callee_name'), t.name),
		        r.kind, r.file_path, r.line_number,
		        COALESCE(json_extract(r.metadata, '$.pending_confidence'), ?),
		        0, ?
		 FROM relationships r
		 JOIN symbols t ON t.id = r.to_symbol_id
		 JOIN symbols f ON f.id = r.from_symbol_id
		 WHERE t.file_path = ? AND f.file_path <> ?
		 ON CONFLICT(from_symbol_id, callee_name, kind, line_number) DO NOTHING`,
		graph.ConfidencePending, now, path, path,
	)
	if err != nil {
		return fmt.Errorf("demote incoming relationships: %w", err)
	}
	return nil
}

// DeleteFile removes a file and everything extracted from it. Edges from
// other files into it are demoted to pending first. Deleting an unknown
// path is not an error.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := demoteIncomingTx(tx, path, time.Now().UTC()); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
			return fmt.Errorf("delete file %s: %w", path, err)
		}
		return nil
	})
}

// CommitBatch drains batch and commits it as one file-set. The drained sets
// are returned either way so a caller can retry them one by one.
func (s *Store) CommitBatch(ctx context.Context, batch *Batch) ([]FileSet, error) {
	sets := batch.Drain()
	return sets, s.ReplaceFiles(ctx, sets)
}
