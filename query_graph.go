package julie

import (
	"context"
	"errors"
	"fmt"
	"sort"

	dgraph "github.com/dominikbraun/graph"

	"github.com/anortham/julie-sub010/internal/graph"
)

// ErrNoPath is returned by TracePath when no call chain connects the two
// symbols.
var ErrNoPath = errors.New("no call path")

const maxGraphDepth = 100

// CallGraph represents a transitive call graph rooted at a symbol.
// Edges are bulk-loaded then traversed with BFS, so there are no recursive
// SQL or N+1 queries.
type CallGraph struct {
	Root  string          `json:"root"`
	Nodes []CallGraphNode `json:"nodes"`
	Edges []Relationship  `json:"edges"`
	Depth int             `json:"depth"` // actual max depth reached
}

// CallGraphNode is a symbol in the call graph with its distance from the root.
type CallGraphNode struct {
	Symbol Symbol `json:"symbol"`
	Depth  int    `json:"depth"` // 0 = root itself
}

// callGraphData holds the bulk-loaded Calls edges keyed both ways.
type callGraphData struct {
	byCaller map[string][]Relationship
	byCallee map[string][]Relationship
}

func (q *QueryBuilder) buildCallGraph(ctx context.Context) (*callGraphData, error) {
	rels, err := q.store.Relationships(ctx, graph.RelCalls)
	if err != nil {
		return nil, fmt.Errorf("build call graph: %w", err)
	}
	data := &callGraphData{
		byCaller: make(map[string][]Relationship),
		byCallee: make(map[string][]Relationship),
	}
	for _, r := range rels {
		data.byCaller[r.FromSymbolID] = append(data.byCaller[r.FromSymbolID], r)
		data.byCallee[r.ToSymbolID] = append(data.byCallee[r.ToSymbolID], r)
	}
	return data, nil
}

// TransitiveCallers returns all transitive callers of a symbol up to
// maxDepth. maxDepth of 0 returns only the root; it is capped at 100.
// Returns nil, nil if the symbol does not exist.
func (q *QueryBuilder) TransitiveCallers(ctx context.Context, id string, maxDepth int) (*CallGraph, error) {
	return q.transitive(ctx, id, maxDepth, false)
}

// TransitiveCallees returns all transitive callees of a symbol up to
// maxDepth, with the same limits as TransitiveCallers.
func (q *QueryBuilder) TransitiveCallees(ctx context.Context, id string, maxDepth int) (*CallGraph, error) {
	return q.transitive(ctx, id, maxDepth, true)
}

func (q *QueryBuilder) transitive(ctx context.Context, id string, maxDepth int, forward bool) (*CallGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("call graph: maxDepth must be non-negative, got %d", maxDepth)
	}
	maxDepth = min(maxDepth, maxGraphDepth)

	root, err := q.Symbol(ctx, id)
	if err != nil || root == nil {
		return nil, err
	}
	result := &CallGraph{
		Root:  id,
		Nodes: []CallGraphNode{{Symbol: *root}},
		Edges: []Relationship{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data, err := q.buildCallGraph(ctx)
	if err != nil {
		return nil, err
	}
	adj, next := data.byCallee, func(r *Relationship) string { return r.FromSymbolID }
	if forward {
		adj, next = data.byCaller, func(r *Relationship) string { return r.ToSymbolID }
	}

	visited := map[string]int{id: 0}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		depth := visited[cur]
		if depth >= maxDepth {
			continue
		}
		for i := range adj[cur] {
			n := next(&adj[cur][i])
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = depth + 1
			result.Depth = max(result.Depth, depth+1)
			queue = append(queue, n)
		}
	}

	ids := make([]string, 0, len(visited)-1)
	for n := range visited {
		if n != id {
			ids = append(ids, n)
		}
	}
	syms, err := q.symbolsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, n := range ids {
		if s, ok := syms[n]; ok {
			result.Nodes = append(result.Nodes, CallGraphNode{Symbol: s, Depth: visited[n]})
		}
	}
	sort.Slice(result.Nodes, func(i, j int) bool {
		a, b := result.Nodes[i], result.Nodes[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Symbol.ID < b.Symbol.ID
	})

	// An edge belongs to the subgraph when both ends were visited.
	for n := range visited {
		for _, r := range data.byCaller[n] {
			if _, ok := visited[r.ToSymbolID]; ok {
				result.Edges = append(result.Edges, r)
			}
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool { return result.Edges[i].ID < result.Edges[j].ID })
	return result, nil
}

// TracePath returns the shortest chain of Calls edges from a symbol named
// from to a symbol named to, endpoints included. When several symbols share
// a name, the shortest chain over all pairs wins. ErrNoPath is returned
// when nothing connects them.
func (q *QueryBuilder) TracePath(ctx context.Context, from, to string) ([]Symbol, error) {
	sources, err := q.FindSymbol(ctx, from)
	if err != nil {
		return nil, err
	}
	targets, err := q.FindSymbol(ctx, to)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 || len(targets) == 0 {
		return nil, fmt.Errorf("trace %s -> %s: %w", from, to, ErrNoPath)
	}

	rels, err := q.store.Relationships(ctx, graph.RelCalls)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	g := dgraph.New(dgraph.StringHash, dgraph.Directed())
	addVertex := func(id string) error {
		if err := g.AddVertex(id); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return err
		}
		return nil
	}
	for _, s := range append(append([]Symbol{}, sources...), targets...) {
		if err := addVertex(s.ID); err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
	}
	for _, r := range rels {
		if err := addVertex(r.FromSymbolID); err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
		if err := addVertex(r.ToSymbolID); err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
		if err := g.AddEdge(r.FromSymbolID, r.ToSymbolID); err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("trace: %w", err)
		}
	}

	var best []string
	for _, s := range sources {
		for _, t := range targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if s.ID == t.ID {
				continue
			}
			path, err := dgraph.ShortestPath(g, s.ID, t.ID)
			if errors.Is(err, dgraph.ErrTargetNotReachable) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("trace: %w", err)
			}
			if best == nil || len(path) < len(best) {
				best = path
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("trace %s -> %s: %w", from, to, ErrNoPath)
	}

	syms, err := q.symbolsByID(ctx, best)
	if err != nil {
		return nil, err
	}
	out := make([]Symbol, 0, len(best))
	for _, id := range best {
		out = append(out, syms[id])
	}
	return out, nil
}

// ImpactedSymbol is a symbol that transitively depends on an impact seed.
type ImpactedSymbol struct {
	Symbol Symbol `json:"symbol"`
	Depth  int    `json:"depth"`
}

// Impact returns every symbol that reaches id through incoming edges of
// any kind, nearest first. maxDepth <= 0 uses the store default.
func (q *QueryBuilder) Impact(ctx context.Context, id string, maxDepth int) ([]ImpactedSymbol, error) {
	hits, err := q.store.Impact(ctx, []string{id}, maxDepth)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.SymbolID
	}
	syms, err := q.symbolsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ImpactedSymbol, 0, len(hits))
	for _, h := range hits {
		if s, ok := syms[h.SymbolID]; ok {
			out = append(out, ImpactedSymbol{Symbol: s, Depth: h.Depth})
		}
	}
	return out, nil
}

// HotspotResult is a heavily referenced symbol with fan-in and fan-out.
type HotspotResult struct {
	Symbol   Symbol `json:"symbol"`
	Incoming int    `json:"incoming"`
	External int    `json:"external"`
	Outgoing int    `json:"outgoing"`
}

// Hotspots returns the topN most referenced symbols, ranked by references
// from other files. topN of 0 returns an empty list; negative is an error.
func (q *QueryBuilder) Hotspots(ctx context.Context, topN int) ([]HotspotResult, error) {
	if topN < 0 {
		return nil, fmt.Errorf("hotspots: topN must be non-negative, got %d", topN)
	}
	hs, err := q.store.Hotspots(ctx, topN)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hs))
	for i, h := range hs {
		ids[i] = h.SymbolID
	}
	syms, err := q.symbolsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := []HotspotResult{}
	for _, h := range hs {
		if s, ok := syms[h.SymbolID]; ok {
			out = append(out, HotspotResult{Symbol: s, Incoming: h.Incoming, External: h.External, Outgoing: h.Outgoing})
		}
	}
	return out, nil
}
