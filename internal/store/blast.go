package store

import (
	"context"
	"fmt"
)

// Impact walks incoming relationships from the given symbols and returns
// every symbol that transitively depends on them, with the shortest number
// of hops. maxDepth <= 0 means 8. The seeds themselves are excluded.
func (s *Store) Impact(ctx context.Context, symbolIDs []string, maxDepth int) ([]ImpactedSymbol, error) {
	if len(symbolIDs) == 0 {
		return nil, nil
	}
	if maxDepth <= 0 {
		maxDepth = 8
	}
	seeds := symbolIDs
	if len(seeds) > maxInParams {
		seeds = seeds[:maxInParams]
	}
	args := stringsToArgs(seeds)
	args = append(args, maxDepth)
	args = append(args, stringsToArgs(seeds)...)

	rows, err := s.db.QueryContext(ctx,
		`WITH RECURSIVE impact(id, depth) AS (
		   SELECT id, 0 FROM symbols WHERE id IN (`+placeholderList(len(seeds))+`)
		   UNION
		   SELECT r.from_symbol_id, i.depth + 1
		   FROM relationships r JOIN impact i ON r.to_symbol_id = i.id
		   WHERE i.depth < ?
		 )
		 SELECT id, MIN(depth) AS d FROM impact
		 WHERE id NOT IN (`+placeholderList(len(seeds))+`)
		 GROUP BY id
		 ORDER BY d, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("impact: %w", err)
	}
	defer rows.Close()
	var out []ImpactedSymbol
	for rows.Next() {
		var is ImpactedSymbol
		if err := rows.Scan(&is.SymbolID, &is.Depth); err != nil {
			return nil, fmt.Errorf("scan impacted symbol: %w", err)
		}
		out = append(out, is)
	}
	return out, rows.Err()
}
