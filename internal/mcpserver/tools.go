package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anortham/julie-sub010"
)

// --- Input types ---

type SearchSymbolsInput struct {
	Query string `json:"query" jsonschema:"Words to match against symbol names, signatures and doc comments"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results (default 50, max 500)"`
}

type FindSymbolInput struct {
	Name string `json:"name,omitempty" jsonschema:"Exact symbol name"`
	File string `json:"file,omitempty" jsonschema:"Absolute file path; with line, returns the innermost symbol there"`
	Line int    `json:"line,omitempty" jsonschema:"1-based line number inside file"`
}

type SymbolRefInput struct {
	Symbol string `json:"symbol" jsonschema:"Symbol id, or a name matching every symbol so named"`
}

type TraceInput struct {
	From string `json:"from" jsonschema:"Name of the calling symbol"`
	To   string `json:"to" jsonschema:"Name of the called symbol"`
}

type IndexFileInput struct {
	Path string `json:"path" jsonschema:"Path of the file to re-index"`
}

type WorkspaceStatsInput struct{}

// SymbolEdges pairs a symbol with one direction of its call edges.
type SymbolEdges struct {
	Symbol julie.Symbol `json:"symbol"`
	Edges  []julie.Edge `json:"edges"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Full-text search over symbol names, signatures and doc comments",
	}, s.searchSymbols)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_symbol",
		Description: "Find symbols by exact name, or the symbol at a file and line",
	}, s.findSymbol)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_callers",
		Description: "List the resolved callers of a symbol",
	}, s.findCallers)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_callees",
		Description: "List the resolved callees of a symbol",
	}, s.findCallees)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "trace_call_path",
		Description: "Shortest chain of calls from one named symbol to another",
	}, s.traceCallPath)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_file",
		Description: "Re-index one file and re-resolve cross-file edges",
	}, s.indexFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workspace_stats",
		Description: "Counts, search index parity, orphan edges and recent scans",
	}, s.workspaceStats)
}

// --- Handlers ---

func (s *Server) searchSymbols(ctx context.Context, _ *mcp.CallToolRequest, in SearchSymbolsInput) (*mcp.CallToolResult, any, error) {
	if in.Query == "" {
		return toolError("query is required"), nil, nil
	}
	syms, err := s.engine.Query().Search(ctx, in.Query, in.Limit)
	if err != nil {
		return toolError("Search failed: %v", err), nil, nil
	}
	if syms == nil {
		syms = []julie.Symbol{}
	}
	return toolJSON(syms)
}

func (s *Server) findSymbol(ctx context.Context, _ *mcp.CallToolRequest, in FindSymbolInput) (*mcp.CallToolResult, any, error) {
	q := s.engine.Query()
	switch {
	case in.File != "" && in.Line > 0:
		sym, err := q.SymbolAt(ctx, in.File, in.Line)
		if err != nil {
			return toolError("Lookup failed: %v", err), nil, nil
		}
		if sym == nil {
			return toolError("No symbol at %s:%d", in.File, in.Line), nil, nil
		}
		return toolJSON(sym)
	case in.Name != "":
		syms, err := q.FindSymbol(ctx, in.Name)
		if err != nil {
			return toolError("Lookup failed: %v", err), nil, nil
		}
		if len(syms) == 0 {
			return toolError("No symbol named %q", in.Name), nil, nil
		}
		return toolJSON(syms)
	}
	return toolError("name, or file and line, is required"), nil, nil
}

func (s *Server) findCallers(ctx context.Context, _ *mcp.CallToolRequest, in SymbolRefInput) (*mcp.CallToolResult, any, error) {
	return s.symbolEdges(ctx, in.Symbol, s.engine.Query().Callers)
}

func (s *Server) findCallees(ctx context.Context, _ *mcp.CallToolRequest, in SymbolRefInput) (*mcp.CallToolResult, any, error) {
	return s.symbolEdges(ctx, in.Symbol, s.engine.Query().Callees)
}

func (s *Server) symbolEdges(ctx context.Context, ref string, edges func(context.Context, string) ([]julie.Edge, error)) (*mcp.CallToolResult, any, error) {
	syms, err := s.lookup(ctx, ref)
	if err != nil {
		return toolError("Lookup failed: %v", err), nil, nil
	}
	if len(syms) == 0 {
		return toolError("No symbol %q", ref), nil, nil
	}
	out := make([]SymbolEdges, 0, len(syms))
	for _, sym := range syms {
		es, err := edges(ctx, sym.ID)
		if err != nil {
			return toolError("Query failed: %v", err), nil, nil
		}
		if es == nil {
			es = []julie.Edge{}
		}
		out = append(out, SymbolEdges{Symbol: sym, Edges: es})
	}
	return toolJSON(out)
}

// lookup treats ref as an id first, then as a name.
func (s *Server) lookup(ctx context.Context, ref string) ([]julie.Symbol, error) {
	q := s.engine.Query()
	sym, err := q.Symbol(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sym != nil {
		return []julie.Symbol{*sym}, nil
	}
	return q.FindSymbol(ctx, ref)
}

func (s *Server) traceCallPath(ctx context.Context, _ *mcp.CallToolRequest, in TraceInput) (*mcp.CallToolResult, any, error) {
	if in.From == "" || in.To == "" {
		return toolError("from and to are required"), nil, nil
	}
	path, err := s.engine.Query().TracePath(ctx, in.From, in.To)
	if errors.Is(err, julie.ErrNoPath) {
		return toolError("No call path from %s to %s", in.From, in.To), nil, nil
	}
	if err != nil {
		return toolError("Trace failed: %v", err), nil, nil
	}
	return toolJSON(path)
}

func (s *Server) indexFile(ctx context.Context, _ *mcp.CallToolRequest, in IndexFileInput) (*mcp.CallToolResult, any, error) {
	res, err := s.engine.UpdateFile(ctx, in.Path)
	switch {
	case errors.Is(err, julie.ErrFileNotFound):
		return toolError("File not found: %s", in.Path), nil, nil
	case errors.Is(err, julie.ErrUnsupportedLanguage):
		return toolError("Unsupported language: %s", in.Path), nil, nil
	case err != nil:
		return toolError("Index failed: %v", err), nil, nil
	}
	s.logger.Debug("index_file", "path", in.Path, "skipped", res.Skipped)
	return toolJSON(res)
}

func (s *Server) workspaceStats(ctx context.Context, _ *mcp.CallToolRequest, _ WorkspaceStatsInput) (*mcp.CallToolResult, any, error) {
	rep, err := s.engine.Query().Integrity(ctx)
	if err != nil {
		return toolError("Stats failed: %v", err), nil, nil
	}
	return toolJSON(rep)
}
