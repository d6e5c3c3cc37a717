// Package julie builds an incremental knowledge graph of code symbols and
// the relationships between them (calls, inheritance, implementation,
// usage), persisted in SQLite and kept current by full scans and
// single-file updates.
//
// # Pipeline
//
// Julie operates in two phases:
//
//  1. Extract: each source file is parsed with tree-sitter (or a Risor
//     extraction script) into symbols, same-file relationships, and pending
//     relationships naming targets defined elsewhere. A file's contribution
//     replaces its previous one atomically.
//
//  2. Resolve: a workspace sweep matches pending relationships against
//     symbols from every file, promoting them to relationships with reduced
//     confidence. Edges therefore resolve whichever file is indexed first.
//
// # Usage
//
//	e, err := julie.New("julie.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	report, err := e.ScanDirectory(ctx, "path/to/project")
//
//	q := e.Query()
//	syms, err := q.Search(ctx, "parse config", 20)
//	callers, err := q.Callers(ctx, syms[0].ID)
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.FindSymbol], [QueryBuilder.SymbolAt], [QueryBuilder.Symbols]: lookup and listing.
//   - [QueryBuilder.Search], [QueryBuilder.SearchFiles]: full-text search.
//   - [QueryBuilder.Callers], [QueryBuilder.Callees], [QueryBuilder.References]: direct edges.
//   - [QueryBuilder.TransitiveCallers], [QueryBuilder.TransitiveCallees], [QueryBuilder.TracePath]: call graph walks.
//   - [QueryBuilder.Impact], [QueryBuilder.Hotspots]: change impact and fan-in.
//   - [QueryBuilder.TypeHierarchy], [QueryBuilder.PackageDependencyGraph]: structure.
//   - [QueryBuilder.Integrity]: FTS mirror parity and orphan checks.
//
// # Incremental Indexing
//
// Files whose content hash is unchanged are skipped before any work. When a
// file is replaced, relationships from other files into it are demoted back
// to pending so the next sweep re-links them to the new symbols. Pending
// relationships that never resolve persist until [Engine.PruneUnresolved]
// declares the scan complete.
package julie
