package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anortham/julie-sub010/internal/graph"
)

// --- File operations ---

// FileByPath returns the stored file, content included.
func (s *Store) FileByPath(ctx context.Context, path string) (*File, error) {
	f := &File{}
	var content sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT path, content, hash, language, size, created_at, updated_at FROM files WHERE path = ?", path,
	).Scan(&f.Path, &content, &f.Hash, &f.Language, &f.Size, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	f.Content = content.String
	return f, nil
}

// FileHash returns the stored content hash of path.
func (s *Store) FileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("file hash: %w", err)
	}
	return hash, nil
}

// Files lists every stored file without its content, ordered by path.
func (s *Store) Files(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, hash, language, size, created_at, updated_at FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Path, &f.Hash, &f.Language, &f.Size, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Symbol operations ---

const symbolCols = `id, name, kind, language, file_path, start_line, start_column, end_line, end_column,
	start_byte, end_byte, signature, visibility, parent_id, doc_comment, metadata`

func scanSymbol(scanner interface{ Scan(...any) error }) (graph.Symbol, error) {
	var (
		sym                    graph.Symbol
		kind, vis              string
		sig, parent, doc, meta sql.NullString
	)
	err := scanner.Scan(&sym.ID, &sym.Name, &kind, &sym.Language, &sym.FilePath,
		&sym.StartLine, &sym.StartColumn, &sym.EndLine, &sym.EndColumn,
		&sym.StartByte, &sym.EndByte, &sig, &vis, &parent, &doc, &meta)
	if err != nil {
		return sym, err
	}
	sym.Kind = graph.SymbolKind(kind)
	sym.Visibility = graph.Visibility(vis)
	sym.Signature = sig.String
	sym.ParentID = parent.String
	sym.DocComment = doc.String
	sym.Metadata = unmarshalMetadata(meta)
	return sym, nil
}

func (s *Store) querySymbols(ctx context.Context, query string, args ...any) ([]graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var syms []graph.Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

// SymbolByID returns one symbol.
func (s *Store) SymbolByID(ctx context.Context, id string) (*graph.Symbol, error) {
	sym, err := scanSymbol(s.db.QueryRowContext(ctx, "SELECT "+symbolCols+" FROM symbols WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("symbol %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("symbol by id: %w", err)
	}
	return &sym, nil
}

// SymbolsByIDs returns the symbols with the given ids, in no particular order.
// Unknown ids are skipped.
func (s *Store) SymbolsByIDs(ctx context.Context, ids []string) ([]graph.Symbol, error) {
	var out []graph.Symbol
	for _, chunk := range chunks(ids) {
		syms, err := s.querySymbols(ctx,
			"SELECT "+symbolCols+" FROM symbols WHERE id IN ("+placeholderList(len(chunk))+")",
			stringsToArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("symbols by ids: %w", err)
		}
		out = append(out, syms...)
	}
	return out, nil
}

// SymbolsByName returns every symbol with exactly this name.
func (s *Store) SymbolsByName(ctx context.Context, name string) ([]graph.Symbol, error) {
	syms, err := s.querySymbols(ctx,
		"SELECT "+symbolCols+" FROM symbols WHERE name = ? ORDER BY file_path, start_line", name)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	return syms, nil
}

// SymbolsNamed returns every symbol whose name is in names.
func (s *Store) SymbolsNamed(ctx context.Context, names []string) ([]graph.Symbol, error) {
	var out []graph.Symbol
	for _, chunk := range chunks(names) {
		syms, err := s.querySymbols(ctx,
			"SELECT "+symbolCols+" FROM symbols WHERE name IN ("+placeholderList(len(chunk))+")",
			stringsToArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("symbols named: %w", err)
		}
		out = append(out, syms...)
	}
	return out, nil
}

// SymbolsByFile returns the symbols of one file in source order.
func (s *Store) SymbolsByFile(ctx context.Context, path string) ([]graph.Symbol, error) {
	syms, err := s.querySymbols(ctx,
		"SELECT "+symbolCols+" FROM symbols WHERE file_path = ? ORDER BY start_byte", path)
	if err != nil {
		return nil, fmt.Errorf("symbols by file: %w", err)
	}
	return syms, nil
}

// SymbolChildren returns symbols whose parent is parentID.
func (s *Store) SymbolChildren(ctx context.Context, parentID string) ([]graph.Symbol, error) {
	syms, err := s.querySymbols(ctx,
		"SELECT "+symbolCols+" FROM symbols WHERE parent_id = ? ORDER BY start_byte", parentID)
	if err != nil {
		return nil, fmt.Errorf("symbol children: %w", err)
	}
	return syms, nil
}

// --- Relationship operations ---

const relationshipCols = `id, from_symbol_id, to_symbol_id, kind, file_path, line_number, confidence, metadata`

func (s *Store) queryRelationships(ctx context.Context, query string, args ...any) ([]graph.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rels []graph.Relationship
	for rows.Next() {
		var (
			r    graph.Relationship
			kind string
			meta sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.FromSymbolID, &r.ToSymbolID, &kind, &r.FilePath,
			&r.LineNumber, &r.Confidence, &meta); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		r.Kind = graph.RelationshipKind(kind)
		r.Metadata = unmarshalMetadata(meta)
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// RelationshipsFrom returns outgoing edges of a symbol.
func (s *Store) RelationshipsFrom(ctx context.Context, symbolID string) ([]graph.Relationship, error) {
	rels, err := s.queryRelationships(ctx,
		"SELECT "+relationshipCols+" FROM relationships WHERE from_symbol_id = ? ORDER BY line_number, id", symbolID)
	if err != nil {
		return nil, fmt.Errorf("relationships from: %w", err)
	}
	return rels, nil
}

// RelationshipsTo returns incoming edges of a symbol.
func (s *Store) RelationshipsTo(ctx context.Context, symbolID string) ([]graph.Relationship, error) {
	rels, err := s.queryRelationships(ctx,
		"SELECT "+relationshipCols+" FROM relationships WHERE to_symbol_id = ? ORDER BY file_path, line_number, id", symbolID)
	if err != nil {
		return nil, fmt.Errorf("relationships to: %w", err)
	}
	return rels, nil
}

// Relationships returns every edge, optionally restricted to kinds.
func (s *Store) Relationships(ctx context.Context, kinds ...graph.RelationshipKind) ([]graph.Relationship, error) {
	query := "SELECT " + relationshipCols + " FROM relationships"
	var args []any
	if len(kinds) > 0 {
		query += " WHERE kind IN (" + placeholderList(len(kinds)) + ")"
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	rels, err := s.queryRelationships(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("relationships: %w", err)
	}
	return rels, nil
}

// OrphanRelationships counts edges whose source or target symbol is
// missing. Foreign keys make this zero; it is exposed as an integrity check.
func (s *Store) OrphanRelationships(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM relationships r
		 WHERE NOT EXISTS (SELECT 1 FROM symbols WHERE id = r.from_symbol_id)
		    OR NOT EXISTS (SELECT 1 FROM symbols WHERE id = r.to_symbol_id)`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("orphan relationships: %w", err)
	}
	return n, nil
}

// Stats counts the rows of each table.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Languages: make(map[string]int)}
	for _, q := range []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM files", &st.Files},
		{"SELECT COUNT(*) FROM symbols", &st.Symbols},
		{"SELECT COUNT(*) FROM relationships", &st.Relationships},
		{"SELECT COUNT(*) FROM pending_relationships", &st.Pending},
	} {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}
	rows, err := s.db.QueryContext(ctx, "SELECT language, COUNT(*) FROM files GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("stats: languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("stats: scan language: %w", err)
		}
		st.Languages[lang] = n
	}
	return st, rows.Err()
}
