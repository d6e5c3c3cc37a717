package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anortham/julie-sub010"
)

const (
	libSource = `package lib

// Greeting builds the greeting text.
func Greeting(name string) string {
	return "hello " + name
}
`
	appSource = `package app

func Run() string {
	return Greeting("world")
}
`
)

type fixture struct {
	session *mcp.ClientSession
	dir     string
}

// newFixture scans a two-file workspace and connects a client to a server
// over in-memory transports.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	e, err := julie.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.go"), []byte(libSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.go"), []byte(appSource), 0o644))
	_, err = e.ScanDirectory(ctx, dir)
	require.NoError(t, err)

	srv := New(e, "test", nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err = srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return &fixture{session: session, dir: dir}
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool(%s)", name)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text, result.IsError
}

func (f *fixture) callJSON(t *testing.T, name string, args map[string]any, out any) {
	t.Helper()
	text, isErr := f.call(t, name, args)
	require.False(t, isErr, "%s returned error: %s", name, text)
	require.NoError(t, json.Unmarshal([]byte(text), out))
}

// =============================================================================
// Tools
// =============================================================================

func TestTools_Listed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res, err := f.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"search_symbols", "find_symbol", "find_callers", "find_callees",
		"trace_call_path", "index_file", "workspace_stats",
	}, names)
}

func TestSearchSymbols(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var syms []julie.Symbol
	f.callJSON(t, "search_symbols", map[string]any{"query": "greeting text"}, &syms)
	require.Len(t, syms, 1)
	assert.Equal(t, "Greeting", syms[0].Name)

	_, isErr := f.call(t, "search_symbols", map[string]any{"query": ""})
	assert.True(t, isErr)
}

func TestFindSymbol(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var syms []julie.Symbol
	f.callJSON(t, "find_symbol", map[string]any{"name": "Run"}, &syms)
	require.Len(t, syms, 1)
	assert.Equal(t, filepath.Join(f.dir, "app.go"), syms[0].FilePath)

	var sym julie.Symbol
	f.callJSON(t, "find_symbol", map[string]any{"file": filepath.Join(f.dir, "lib.go"), "line": 5}, &sym)
	assert.Equal(t, "Greeting", sym.Name)

	text, isErr := f.call(t, "find_symbol", map[string]any{"name": "Missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Missing")
}

func TestFindCallersAndCallees(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var callers []SymbolEdges
	f.callJSON(t, "find_callers", map[string]any{"symbol": "Greeting"}, &callers)
	require.Len(t, callers, 1)
	require.Len(t, callers[0].Edges, 1)
	assert.Equal(t, "Run", callers[0].Edges[0].Other.Name)

	// Look up by id as well as by name.
	var callees []SymbolEdges
	f.callJSON(t, "find_callees", map[string]any{"symbol": callers[0].Edges[0].Other.ID}, &callees)
	require.Len(t, callees, 1)
	require.Len(t, callees[0].Edges, 1)
	assert.Equal(t, "Greeting", callees[0].Edges[0].Other.Name)
}

func TestTraceCallPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var path []julie.Symbol
	f.callJSON(t, "trace_call_path", map[string]any{"from": "Run", "to": "Greeting"}, &path)
	require.Len(t, path, 2)

	text, isErr := f.call(t, "trace_call_path", map[string]any{"from": "Greeting", "to": "Run"})
	assert.True(t, isErr)
	assert.Contains(t, text, "No call path")
}

func TestIndexFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := filepath.Join(f.dir, "lib.go")

	var res julie.UpdateResult
	f.callJSON(t, "index_file", map[string]any{"path": path}, &res)
	assert.True(t, res.Skipped)
	assert.NotEmpty(t, res.Hash)

	require.NoError(t, os.WriteFile(path, []byte(libSource+"\nfunc Farewell() string { return \"bye\" }\n"), 0o644))
	f.callJSON(t, "index_file", map[string]any{"path": path}, &res)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Symbols)

	text, isErr := f.call(t, "index_file", map[string]any{"path": filepath.Join(f.dir, "gone.go")})
	assert.True(t, isErr)
	assert.Contains(t, text, "File not found")
}

func TestWorkspaceStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var rep julie.IntegrityReport
	f.callJSON(t, "workspace_stats", map[string]any{}, &rep)
	assert.True(t, rep.OK())
	assert.Equal(t, 2, rep.Stats.Files)
	assert.Equal(t, 2, rep.Stats.Symbols)
}
