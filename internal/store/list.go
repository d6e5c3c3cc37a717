package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/anortham/julie-sub010/internal/graph"
)

// SymbolFilter narrows ListSymbols. Zero fields match everything.
type SymbolFilter struct {
	Kinds      []graph.SymbolKind
	Language   string
	Visibility graph.Visibility
	PathPrefix string
	ParentID   string
}

func (f *SymbolFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.Kinds) > 0 {
		conds = append(conds, "kind IN ("+placeholderList(len(f.Kinds))+")")
		for _, k := range f.Kinds {
			args = append(args, string(k))
		}
	}
	if f.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, f.Language)
	}
	if f.Visibility != "" {
		conds = append(conds, "visibility = ?")
		args = append(args, string(f.Visibility))
	}
	if f.PathPrefix != "" {
		conds = append(conds, `file_path LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(f.PathPrefix)+"%")
	}
	if f.ParentID != "" {
		conds = append(conds, "parent_id = ?")
		args = append(args, f.ParentID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSymbols returns one page of symbols matching filter, ordered by file
// and position, plus the total number of matches.
func (s *Store) ListSymbols(ctx context.Context, filter SymbolFilter, offset, limit int) ([]graph.Symbol, int, error) {
	where, args := filter.where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count symbols: %w", err)
	}
	syms, err := s.querySymbols(ctx,
		"SELECT "+symbolCols+" FROM symbols"+where+" ORDER BY file_path, start_byte LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list symbols: %w", err)
	}
	return syms, total, nil
}

// escapeLike escapes LIKE wildcards so a path prefix matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Hotspot is a symbol ranked by how many resolved edges point at it.
type Hotspot struct {
	SymbolID string `json:"symbol_id"`
	Incoming int    `json:"incoming"`
	External int    `json:"external"` // incoming edges from other files
	Outgoing int    `json:"outgoing"`
}

// Hotspots returns the topN most referenced symbols, ranked by incoming
// edges from other files, then by all incoming edges.
func (s *Store) Hotspots(ctx context.Context, topN int) ([]Hotspot, error) {
	if topN <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.incoming, h.external,
		        (SELECT COUNT(*) FROM relationships o WHERE o.from_symbol_id = h.id)
		 FROM (SELECT r.to_symbol_id AS id, COUNT(*) AS incoming,
		              SUM(CASE WHEN r.file_path <> t.file_path THEN 1 ELSE 0 END) AS external
		       FROM relationships r JOIN symbols t ON t.id = r.to_symbol_id
		       GROUP BY r.to_symbol_id) h
		 ORDER BY h.external DESC, h.incoming DESC, h.id
		 LIMIT ?`, topN)
	if err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}
	defer rows.Close()
	var out []Hotspot
	for rows.Next() {
		var h Hotspot
		if err := rows.Scan(&h.SymbolID, &h.Incoming, &h.External, &h.Outgoing); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// FileDependency counts resolved edges from symbols in one file to symbols
// in another.
type FileDependency struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// FileDependencies aggregates cross-file relationships by file pair.
func (s *Store) FileDependencies(ctx context.Context) ([]FileDependency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.file_path, t.file_path, COUNT(*)
		 FROM relationships r
		 JOIN symbols f ON f.id = r.from_symbol_id
		 JOIN symbols t ON t.id = r.to_symbol_id
		 WHERE f.file_path <> t.file_path
		 GROUP BY f.file_path, t.file_path
		 ORDER BY f.file_path, t.file_path`)
	if err != nil {
		return nil, fmt.Errorf("file dependencies: %w", err)
	}
	defer rows.Close()
	var out []FileDependency
	for rows.Next() {
		var d FileDependency
		if err := rows.Scan(&d.From, &d.To, &d.Count); err != nil {
			return nil, fmt.Errorf("scan file dependency: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
