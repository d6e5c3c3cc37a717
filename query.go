package julie

import (
	"context"
	"errors"
	"fmt"

	"github.com/anortham/julie-sub010/internal/graph"
	"github.com/anortham/julie-sub010/internal/store"
)

// QueryBuilder provides a read-only query API over the Store.
type QueryBuilder struct {
	store *store.Store
}

// Location represents a source code position range.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// LocationOf returns the span of sym.
func LocationOf(sym *Symbol) Location {
	return Location{
		File:      sym.FilePath,
		StartLine: sym.StartLine,
		StartCol:  sym.StartColumn,
		EndLine:   sym.EndLine,
		EndCol:    sym.EndColumn,
	}
}

// Edge is a resolved relationship with the symbol on its other end.
type Edge struct {
	Relationship
	Other Symbol `json:"other"`
}

// Symbol returns the symbol with the given id, or nil if it does not exist.
func (q *QueryBuilder) Symbol(ctx context.Context, id string) (*Symbol, error) {
	sym, err := q.store.SymbolByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	return sym, nil
}

// FindSymbol returns every symbol named name.
func (q *QueryBuilder) FindSymbol(ctx context.Context, name string) ([]Symbol, error) {
	syms, err := q.store.SymbolsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find symbol: %w", err)
	}
	return syms, nil
}

// SymbolAt returns the narrowest symbol whose span contains line in file,
// or nil when none does.
func (q *QueryBuilder) SymbolAt(ctx context.Context, file string, line int) (*Symbol, error) {
	syms, err := q.store.SymbolsByFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	var best *Symbol
	for i := range syms {
		s := &syms[i]
		if line < s.StartLine || line > s.EndLine {
			continue
		}
		if best == nil || s.EndByte-s.StartByte < best.EndByte-best.StartByte {
			best = s
		}
	}
	return best, nil
}

// FileSymbols returns the symbols defined in file, in source order.
func (q *QueryBuilder) FileSymbols(ctx context.Context, file string) ([]Symbol, error) {
	return q.store.SymbolsByFile(ctx, file)
}

// Children returns the symbols whose parent is id.
func (q *QueryBuilder) Children(ctx context.Context, id string) ([]Symbol, error) {
	return q.store.SymbolChildren(ctx, id)
}

// Callers returns Calls edges where id is the callee. Other is the caller.
func (q *QueryBuilder) Callers(ctx context.Context, id string) ([]Edge, error) {
	return q.incoming(ctx, id, graph.RelCalls)
}

// Callees returns Calls edges where id is the caller. Other is the callee.
func (q *QueryBuilder) Callees(ctx context.Context, id string) ([]Edge, error) {
	return q.outgoing(ctx, id, graph.RelCalls)
}

// References returns every resolved edge into id, whatever its kind.
func (q *QueryBuilder) References(ctx context.Context, id string) ([]Edge, error) {
	return q.incoming(ctx, id)
}

// Unresolved returns the pending relationships waiting on name.
func (q *QueryBuilder) Unresolved(ctx context.Context, name string) ([]PendingRelationship, error) {
	return q.store.PendingByCallee(ctx, name)
}

func (q *QueryBuilder) incoming(ctx context.Context, id string, kinds ...graph.RelationshipKind) ([]Edge, error) {
	rels, err := q.store.RelationshipsTo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("incoming %s: %w", id, err)
	}
	return q.edges(ctx, filterKinds(rels, kinds), func(r *Relationship) string { return r.FromSymbolID })
}

func (q *QueryBuilder) outgoing(ctx context.Context, id string, kinds ...graph.RelationshipKind) ([]Edge, error) {
	rels, err := q.store.RelationshipsFrom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("outgoing %s: %w", id, err)
	}
	return q.edges(ctx, filterKinds(rels, kinds), func(r *Relationship) string { return r.ToSymbolID })
}

// edges attaches the symbol on the far end of each relationship, loading
// all of them in one query.
func (q *QueryBuilder) edges(ctx context.Context, rels []Relationship, other func(*Relationship) string) ([]Edge, error) {
	if len(rels) == 0 {
		return nil, nil
	}
	ids := make([]string, len(rels))
	for i := range rels {
		ids[i] = other(&rels[i])
	}
	syms, err := q.symbolsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(rels))
	for i := range rels {
		sym, ok := syms[other(&rels[i])]
		if !ok {
			continue
		}
		out = append(out, Edge{Relationship: rels[i], Other: sym})
	}
	return out, nil
}

func (q *QueryBuilder) symbolsByID(ctx context.Context, ids []string) (map[string]Symbol, error) {
	syms, err := q.store.SymbolsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	out := make(map[string]Symbol, len(syms))
	for _, s := range syms {
		out[s.ID] = s
	}
	return out, nil
}

func filterKinds(rels []Relationship, kinds []graph.RelationshipKind) []Relationship {
	if len(kinds) == 0 {
		return rels
	}
	var out []Relationship
	for _, r := range rels {
		for _, k := range kinds {
			if r.Kind == k {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
