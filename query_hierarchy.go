package julie

import (
	"context"
	"fmt"

	"github.com/anortham/julie-sub010/internal/graph"
)

// TypeHierarchy is the inheritance view of a single type.
type TypeHierarchy struct {
	Symbol        Symbol   `json:"symbol"`
	Implements    []Edge   `json:"implements"`     // interfaces/traits this type implements
	ImplementedBy []Edge   `json:"implemented_by"` // concrete types implementing this interface/trait
	Extends       []Edge   `json:"extends"`        // parent types
	ExtendedBy    []Edge   `json:"extended_by"`    // child types
	Members       []Symbol `json:"members"`
}

// TypeHierarchy returns what a type implements and extends, what implements
// and extends it, and its member symbols. Returns nil with no error if the
// symbol does not exist.
func (q *QueryBuilder) TypeHierarchy(ctx context.Context, id string) (*TypeHierarchy, error) {
	sym, err := q.Symbol(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if sym == nil {
		return nil, nil
	}
	h := &TypeHierarchy{Symbol: *sym}

	if h.Implements, err = q.outgoing(ctx, id, graph.RelImplements); err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if h.ImplementedBy, err = q.incoming(ctx, id, graph.RelImplements); err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if h.Extends, err = q.outgoing(ctx, id, graph.RelExtends); err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if h.ExtendedBy, err = q.incoming(ctx, id, graph.RelExtends); err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if h.Members, err = q.Children(ctx, id); err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	return h, nil
}

// Implementations returns the types that implement the interface or trait
// id. Other is the implementing type.
func (q *QueryBuilder) Implementations(ctx context.Context, id string) ([]Edge, error) {
	return q.incoming(ctx, id, graph.RelImplements)
}
