package julie

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	dgraph "github.com/dominikbraun/graph"
)

// DependencyGraph is the directory-to-directory dependency graph,
// aggregated from resolved cross-file relationships.
type DependencyGraph struct {
	Packages []PackageNode    `json:"packages"`
	Edges    []DependencyEdge `json:"edges"`
}

// PackageNode is a directory holding indexed files.
type PackageNode struct {
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
}

// DependencyEdge is a dependency between two directories with the number
// of relationships that contribute to it.
type DependencyEdge struct {
	FromPackage string `json:"from"`
	ToPackage   string `json:"to"`
	EdgeCount   int    `json:"edge_count"`
}

// PackageDependencyGraph returns the directory dependency graph. Edges
// between files of the same directory are not reported.
func (q *QueryBuilder) PackageDependencyGraph(ctx context.Context) (*DependencyGraph, error) {
	files, err := q.store.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("package dependency graph: %w", err)
	}
	deps, err := q.store.FileDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("package dependency graph: %w", err)
	}

	counts := map[string]int{}
	for _, f := range files {
		counts[filepath.Dir(f.Path)]++
	}
	packages := make([]PackageNode, 0, len(counts))
	for name, n := range counts {
		packages = append(packages, PackageNode{Name: name, FileCount: n})
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })

	type key struct{ from, to string }
	agg := map[key]int{}
	for _, d := range deps {
		k := key{filepath.Dir(d.From), filepath.Dir(d.To)}
		if k.from == k.to {
			continue
		}
		agg[k] += d.Count
	}
	edges := make([]DependencyEdge, 0, len(agg))
	for k, n := range agg {
		edges = append(edges, DependencyEdge{FromPackage: k.from, ToPackage: k.to, EdgeCount: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromPackage != edges[j].FromPackage {
			return edges[i].FromPackage < edges[j].FromPackage
		}
		return edges[i].ToPackage < edges[j].ToPackage
	})

	return &DependencyGraph{Packages: packages, Edges: edges}, nil
}

// CircularDependencies returns the cycles of the directory dependency
// graph, one per strongly connected component of two or more directories.
// Each cycle is sorted and the list is ordered by first element. Returns
// an empty list (not nil) for acyclic graphs.
func (q *QueryBuilder) CircularDependencies(ctx context.Context) ([][]string, error) {
	dg, err := q.PackageDependencyGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("circular dependencies: %w", err)
	}

	g := dgraph.New(dgraph.StringHash, dgraph.Directed())
	for _, p := range dg.Packages {
		if err := g.AddVertex(p.Name); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("circular dependencies: %w", err)
		}
	}
	for _, e := range dg.Edges {
		if err := g.AddEdge(e.FromPackage, e.ToPackage); err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("circular dependencies: %w", err)
		}
	}

	sccs, err := dgraph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, fmt.Errorf("circular dependencies: %w", err)
	}
	cycles := [][]string{}
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles, nil
}
