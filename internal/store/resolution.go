package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anortham/julie-sub010/internal/graph"
)

// --- Pending relationship operations ---

const pendingCols = `id, from_symbol_id, callee_name, kind, file_path, line_number, confidence, attempts, created_at`

func (s *Store) queryPending(ctx context.Context, query string, args ...any) ([]graph.PendingRelationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []graph.PendingRelationship
	for rows.Next() {
		var (
			p    graph.PendingRelationship
			kind string
		)
		if err := rows.Scan(&p.ID, &p.FromSymbolID, &p.CalleeName, &kind, &p.FilePath,
			&p.LineNumber, &p.Confidence, &p.Attempts, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending relationship: %w", err)
		}
		p.Kind = graph.RelationshipKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

// PendingRelationships returns the whole pending queue ordered by id.
func (s *Store) PendingRelationships(ctx context.Context) ([]graph.PendingRelationship, error) {
	out, err := s.queryPending(ctx, "SELECT "+pendingCols+" FROM pending_relationships ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("pending relationships: %w", err)
	}
	return out, nil
}

// PendingByCallee returns pending rows waiting on name.
func (s *Store) PendingByCallee(ctx context.Context, name string) ([]graph.PendingRelationship, error) {
	out, err := s.queryPending(ctx,
		"SELECT "+pendingCols+" FROM pending_relationships WHERE callee_name = ? ORDER BY id", name)
	if err != nil {
		return nil, fmt.Errorf("pending by callee: %w", err)
	}
	return out, nil
}

// Promotion turns one pending row into a resolved relationship.
type Promotion struct {
	PendingID    int64
	Relationship graph.Relationship
}

// Resolution is the outcome of one resolver sweep, applied atomically.
type Resolution struct {
	Promotions []Promotion
	// Unresolved lists pending rows whose attempts counter is bumped.
	Unresolved []int64
}

// ApplyResolution writes a sweep in one transaction: promoted edges are
// inserted (existing ids are left alone), their pending rows deleted, and
// every unresolved row has its attempts incremented. An edge whose endpoint
// vanished since the sweep read the store is skipped and its pending row
// kept. It returns the number of relationships inserted.
func (s *Store) ApplyResolution(ctx context.Context, res Resolution) (int, error) {
	if len(res.Promotions) == 0 && len(res.Unresolved) == 0 {
		return 0, nil
	}
	inserted := 0
	rows := map[string]int{tableRelationships: len(res.Promotions)}
	err := s.bulkWrite(ctx, rows, nil, func(tx *sql.Tx) error {
		inserted = 0
		var consumed []int64
		for i := range res.Promotions {
			p := &res.Promotions[i]
			r := &p.Relationship
			result, err := tx.Exec(
				`INSERT INTO relationships (id, from_symbol_id, to_symbol_id, kind, file_path, line_number, confidence, metadata)
				 SELECT ?, ?, ?, ?, ?, ?, ?, ?
				 WHERE EXISTS (SELECT 1 FROM symbols WHERE id = ?)
				   AND EXISTS (SELECT 1 FROM symbols WHERE id = ?)
				 ON CONFLICT(id) DO NOTHING`,
				r.ID, r.FromSymbolID, r.ToSymbolID, string(r.Kind), r.FilePath, r.LineNumber,
				graph.ClampConfidence(r.Confidence), marshalMetadata(r.Metadata),
				r.FromSymbolID, r.ToSymbolID,
			)
			if err != nil {
				return fmt.Errorf("apply resolution: promote %d: %w", p.PendingID, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("apply resolution: rows affected: %w", err)
			}
			inserted += int(n)
			if n > 0 || relationshipExistsTx(tx, r.ID) {
				consumed = append(consumed, p.PendingID)
			}
		}
		for _, chunk := range chunks(consumed) {
			if _, err := tx.Exec(
				"DELETE FROM pending_relationships WHERE id IN ("+placeholderList(len(chunk))+")",
				int64sToArgs(chunk)...,
			); err != nil {
				return fmt.Errorf("apply resolution: delete consumed: %w", err)
			}
		}
		for _, chunk := range chunks(res.Unresolved) {
			if _, err := tx.Exec(
				"UPDATE pending_relationships SET attempts = attempts + 1 WHERE id IN ("+placeholderList(len(chunk))+")",
				int64sToArgs(chunk)...,
			); err != nil {
				return fmt.Errorf("apply resolution: bump attempts: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func relationshipExistsTx(tx *sql.Tx, id string) bool {
	var one int
	return tx.QueryRow("SELECT 1 FROM relationships WHERE id = ?", id).Scan(&one) == nil
}

// PruneUnresolved deletes pending rows that failed at least minAttempts
// sweeps and records the time in metadata as last_complete_scan. It returns
// the number of rows removed.
func (s *Store) PruneUnresolved(ctx context.Context, minAttempts int) (int, error) {
	var removed int
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM pending_relationships WHERE attempts >= ?", minAttempts)
		if err != nil {
			return fmt.Errorf("prune unresolved: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("prune unresolved: rows affected: %w", err)
		}
		removed = int(n)
		return setMetadataTx(tx, MetaLastCompleteScan, time.Now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
