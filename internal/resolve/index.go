// Package resolve links pending relationships to symbols defined anywhere in
// the workspace. Each sweep reads the pending queue, builds a read-only
// Index of the names it mentions, picks one target per row and hands the
// outcome to the store to apply in a single transaction.
package resolve

import (
	"context"
	"fmt"

	"github.com/anortham/julie-sub010/internal/graph"
	"github.com/anortham/julie-sub010/internal/store"
)

// Index maps names to candidate symbols for one sweep. It is built fresh
// every time and never mutated after BuildIndex returns.
type Index struct {
	byName map[string][]graph.Symbol
	byID   map[string]graph.Symbol
}

// BuildIndex loads every symbol named by a pending row together with every
// pending caller.
func BuildIndex(ctx context.Context, ds store.DataStore, pending []graph.PendingRelationship) (*Index, error) {
	names := make([]string, 0, len(pending))
	callers := make([]string, 0, len(pending))
	seenName := make(map[string]bool)
	seenCaller := make(map[string]bool)
	for _, p := range pending {
		if !seenName[p.CalleeName] {
			seenName[p.CalleeName] = true
			names = append(names, p.CalleeName)
		}
		if !seenCaller[p.FromSymbolID] {
			seenCaller[p.FromSymbolID] = true
			callers = append(callers, p.FromSymbolID)
		}
	}

	named, err := ds.SymbolsNamed(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	from, err := ds.SymbolsByIDs(ctx, callers)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	idx := &Index{
		byName: make(map[string][]graph.Symbol, len(names)),
		byID:   make(map[string]graph.Symbol, len(named)+len(from)),
	}
	for _, sym := range named {
		idx.byName[sym.Name] = append(idx.byName[sym.Name], sym)
		idx.byID[sym.ID] = sym
	}
	for _, sym := range from {
		idx.byID[sym.ID] = sym
	}
	return idx, nil
}

// Candidates returns every symbol called name.
func (idx *Index) Candidates(name string) []graph.Symbol {
	return idx.byName[name]
}

// Symbol returns an indexed symbol by id.
func (idx *Index) Symbol(id string) (graph.Symbol, bool) {
	sym, ok := idx.byID[id]
	return sym, ok
}

// Names returns the number of distinct names with at least one candidate.
func (idx *Index) Names() int {
	return len(idx.byName)
}
