package julie

import (
	"context"
	"errors"
	"fmt"

	"github.com/anortham/julie-sub010/internal/store"
)

// IntegrityReport describes the health of the stored graph.
type IntegrityReport struct {
	Stats            *StoreStats  `json:"stats"`
	Mirrors          MirrorCounts `json:"mirrors"`
	MirrorsInSync    bool         `json:"mirrors_in_sync"`
	OrphanEdges      int          `json:"orphan_relationships"`
	LastCompleteScan string       `json:"last_complete_scan,omitempty"`
	RecentScans      []ScanRun    `json:"recent_scans,omitempty"`
}

// OK reports whether the mirrors match and no relationship dangles.
func (r *IntegrityReport) OK() bool {
	return r.MirrorsInSync && r.OrphanEdges == 0
}

// Integrity gathers counts, FTS mirror parity, orphan relationships and the
// most recent scans.
func (q *QueryBuilder) Integrity(ctx context.Context) (*IntegrityReport, error) {
	st, err := q.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	mc, err := q.store.MirrorCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	orphans, err := q.store.OrphanRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	scans, err := q.store.Scans(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	last, err := q.store.GetMetadata(ctx, store.MetaLastCompleteScan)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	return &IntegrityReport{
		Stats:            st,
		Mirrors:          mc,
		MirrorsInSync:    mc.InSync(),
		OrphanEdges:      orphans,
		LastCompleteScan: last,
		RecentScans:      scans,
	}, nil
}
