package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/anortham/julie-sub010/internal/graph"
)

// ftsQuery reduces free text to the bare terms the FTS tokenizer would
// produce, joined as an implicit AND. Operators and punctuation never reach
// MATCH, so user input cannot raise a syntax error.
func ftsQuery(q string) string {
	terms := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, t := range terms {
		switch strings.ToUpper(t) {
		case "AND", "OR", "NOT", "NEAR":
			terms[i] = strings.ToLower(t)
		}
	}
	return strings.Join(terms, " ")
}

// SearchSymbols runs a full-text query over symbol names, signatures and doc
// comments. Exact name matches sort first.
func (s *Store) SearchSymbols(ctx context.Context, query string, limit int) ([]graph.Symbol, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	syms, err := s.querySymbols(ctx,
		`SELECT `+symbolCols+` FROM symbols
		 WHERE rowid IN (SELECT docid FROM symbols_fts WHERE symbols_fts MATCH ?)
		 ORDER BY CASE WHEN name = ? THEN 0 ELSE 1 END, name, file_path, start_line
		 LIMIT ?`, match, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	return syms, nil
}

// SearchFiles runs a full-text query over file paths and contents and
// returns a highlighted snippet per hit.
func (s *Store) SearchFiles(ctx context.Context, query string, limit int) ([]FileHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.path, f.language, snippet(files_fts, '[', ']', '...', -1, 12)
		 FROM files_fts JOIN files f ON f.rowid = files_fts.docid
		 WHERE files_fts MATCH ?
		 ORDER BY f.path
		 LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()
	var hits []FileHit
	for rows.Next() {
		var h FileHit
		if err := rows.Scan(&h.Path, &h.Language, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan file hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// MirrorCounts reports row counts of symbols and files next to their FTS
// mirrors.
func (s *Store) MirrorCounts(ctx context.Context) (MirrorCounts, error) {
	var m MirrorCounts
	for _, q := range []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM symbols", &m.Symbols},
		{"SELECT COUNT(*) FROM symbols_fts", &m.SymbolsFTS},
		{"SELECT COUNT(*) FROM files", &m.Files},
		{"SELECT COUNT(*) FROM files_fts", &m.FilesFTS},
	} {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return m, fmt.Errorf("mirror counts: %w", err)
		}
	}
	return m, nil
}
