package store

import (
	"context"

	"github.com/anortham/julie-sub010/internal/graph"
)

// DataStore is the slice of the store the workspace resolver needs: the
// pending queue, name lookups, and the atomic apply.
type DataStore interface {
	PendingRelationships(ctx context.Context) ([]graph.PendingRelationship, error)
	SymbolsNamed(ctx context.Context, names []string) ([]graph.Symbol, error)
	SymbolsByIDs(ctx context.Context, ids []string) ([]graph.Symbol, error)
	ApplyResolution(ctx context.Context, res Resolution) (int, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
