package julie

import (
	"context"
	"fmt"
	"strings"

	"github.com/anortham/julie-sub010/internal/graph"
	"github.com/anortham/julie-sub010/internal/store"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"` // total matching results (before pagination)
}

// SymbolFilter specifies which symbols to include. All fields are optional.
type SymbolFilter struct {
	Kinds      []graph.SymbolKind // match any of these kinds
	Language   string
	Visibility graph.Visibility
	PathPrefix string // restrict to symbols in files under this directory
	ParentID   string // restrict to direct children of this symbol
}

// normalizePathPrefix ensures a path prefix ends with "/" so that
// "internal/store" does not match "internal/store_utils/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// --- Enumeration Endpoints ---

// Symbols is the primary listing/filtering endpoint.
func (q *QueryBuilder) Symbols(ctx context.Context, filter SymbolFilter, page Pagination) (*PagedResult[Symbol], error) {
	page = page.normalize()
	items, total, err := q.store.ListSymbols(ctx, store.SymbolFilter{
		Kinds:      filter.Kinds,
		Language:   filter.Language,
		Visibility: filter.Visibility,
		PathPrefix: normalizePathPrefix(filter.PathPrefix),
		ParentID:   filter.ParentID,
	}, page.Offset, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	if items == nil {
		items = []Symbol{}
	}
	return &PagedResult[Symbol]{Items: items, TotalCount: total}, nil
}

// Files lists stored files under pathPrefix, optionally restricted to one
// language. Content is not loaded.
func (q *QueryBuilder) Files(ctx context.Context, pathPrefix, language string) ([]File, error) {
	files, err := q.store.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	prefix := normalizePathPrefix(pathPrefix)
	out := []File{}
	for _, f := range files {
		if prefix != "" && !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if language != "" && f.Language != language {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// --- Full-text search ---

// Search runs a full-text query over symbol names, signatures and doc
// comments. Matching is word and stem aware; exact name matches sort first.
func (q *QueryBuilder) Search(ctx context.Context, query string, limit int) ([]Symbol, error) {
	syms, err := q.store.SearchSymbols(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return syms, nil
}

// SearchFiles runs a full-text query over file paths and contents.
func (q *QueryBuilder) SearchFiles(ctx context.Context, query string, limit int) ([]FileHit, error) {
	hits, err := q.store.SearchFiles(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	return hits, nil
}

func clampLimit(limit int) int {
	return Pagination{Limit: limit}.normalize().Limit
}
