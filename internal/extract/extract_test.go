package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anortham/julie-sub010/internal/graph"
)

func extractSource(t *testing.T, lang, path, src string) *Result {
	t.Helper()
	ex, err := NewRegistry().ForLanguage(lang)
	require.NoError(t, err)
	res, err := ex.Extract(context.Background(), Source{Path: path, Language: lang, Content: []byte(src)})
	require.NoError(t, err)
	return res
}

func symbolNamed(t *testing.T, res *Result, name string) graph.Symbol {
	t.Helper()
	for _, s := range res.Symbols {
		if s.Name == name && s.Kind != graph.KindImport {
			return s
		}
	}
	t.Fatalf("symbol %q not extracted", name)
	return graph.Symbol{}
}

func relBetween(res *Result, from, to string, kind graph.RelationshipKind) (graph.Relationship, bool) {
	for _, r := range res.Relationships {
		if r.FromSymbolID == from && r.ToSymbolID == to && r.Kind == kind {
			return r, true
		}
	}
	return graph.Relationship{}, false
}

func pendingNamed(res *Result, callee string) []graph.PendingRelationship {
	var out []graph.PendingRelationship
	for _, p := range res.Pending {
		if p.CalleeName == callee {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// Go
// =============================================================================

const goSample = `package sample

import "fmt"

// helper adds one.
func helper(x int) int {
	return x + 1
}

func caller() int {
	fmt.Println("hi")
	n := len("abc")
	return helper(n) + helperFunction()
}

type Server struct {
	addr string
}

func (s *Server) Start() error {
	return s.listen()
}

func (s *Server) listen() error { return nil }
`

func TestExtract_GoSameFileCall(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "go", "sample.go", goSample)

	caller := symbolNamed(t, res, "caller")
	helper := symbolNamed(t, res, "helper")

	rel, ok := relBetween(res, caller.ID, helper.ID, graph.RelCalls)
	require.True(t, ok, "caller -> helper should resolve in-file")
	assert.GreaterOrEqual(t, rel.Confidence, 0.85)
	assert.Equal(t, "sample.go", rel.FilePath)
	assert.Equal(t, 13, rel.LineNumber)
	assert.Empty(t, pendingNamed(res, "helper"))
}

func TestExtract_GoCrossFileCallIsPending(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "go", "sample.go", goSample)

	caller := symbolNamed(t, res, "caller")
	pending := pendingNamed(res, "helperFunction")
	require.Len(t, pending, 1)
	assert.Equal(t, caller.ID, pending[0].FromSymbolID)
	assert.Equal(t, graph.RelCalls, pending[0].Kind)
	assert.Less(t, pending[0].Confidence, 0.9)
	assert.InDelta(t, graph.ConfidencePending, pending[0].Confidence, 1e-9)
}

func TestExtract_GoBuiltinsSuppressed(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "go", "sample.go", goSample)

	for _, name := range []string{"Println", "len"} {
		assert.Empty(t, pendingNamed(res, name), name)
	}
	for _, r := range res.Relationships {
		to := r.ToSymbolID
		for _, s := range res.Symbols {
			if s.ID == to {
				assert.NotEqual(t, "fmt", s.Name)
			}
		}
	}
}

func TestExtract_GoSymbolShape(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "go", "sample.go", goSample)

	helper := symbolNamed(t, res, "helper")
	assert.Equal(t, graph.KindFunction, helper.Kind)
	assert.Equal(t, "go", helper.Language)
	assert.Equal(t, 6, helper.StartLine)
	assert.Equal(t, 0, helper.StartColumn)
	assert.Equal(t, 8, helper.EndLine)
	assert.Equal(t, "helper adds one.", helper.DocComment)
	assert.Equal(t, "func helper(x int) int", helper.Signature)
	assert.Equal(t, graph.VisibilityPrivate, helper.Visibility)
	assert.Equal(t, graph.SymbolID("sample.go", "helper", 6, 0), helper.ID)

	server := symbolNamed(t, res, "Server")
	assert.Equal(t, graph.KindStruct, server.Kind)
	assert.Equal(t, graph.VisibilityPublic, server.Visibility)

	addr := symbolNamed(t, res, "addr")
	assert.Equal(t, graph.KindField, addr.Kind)
	assert.Equal(t, server.ID, addr.ParentID)

	// Receivers parent methods under their type.
	start := symbolNamed(t, res, "Start")
	listen := symbolNamed(t, res, "listen")
	assert.Equal(t, graph.KindMethod, start.Kind)
	assert.Equal(t, server.ID, start.ParentID)
	assert.Equal(t, server.ID, listen.ParentID)

	_, ok := relBetween(res, start.ID, listen.ID, graph.RelCalls)
	assert.True(t, ok, "s.listen() should resolve to the sibling method")
}

func TestExtract_GoImportSymbol(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "go", "sample.go", goSample)

	var imports []string
	for _, s := range res.Symbols {
		if s.Kind == graph.KindImport {
			imports = append(imports, s.Name)
		}
	}
	assert.Equal(t, []string{"fmt"}, imports)
}

func TestExtract_RelationshipsOnlyTargetFileSymbols(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "go", "sample.go", goSample)

	ids := make(map[string]bool)
	for _, s := range res.Symbols {
		ids[s.ID] = true
	}
	for _, r := range res.Relationships {
		assert.True(t, ids[r.FromSymbolID])
		assert.True(t, ids[r.ToSymbolID])
	}
	for _, p := range res.Pending {
		assert.True(t, ids[p.FromSymbolID])
	}
}

// =============================================================================
// Python
// =============================================================================

const pySample = `import os
from util import helper_function

MAX_SIZE = 10


class Base:
    pass


class Greeter(Base):
    """Says hello."""

    def __init__(self, name):
        self.name = name

    def greet(self):
        print(self.format_name())
        return helper_function(self.name)

    def format_name(self):
        return self.name.upper()


def _private():
    return Greeter("x")
`

func TestExtract_Python(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "python", "pkg/greeter.py", pySample)

	greeter := symbolNamed(t, res, "Greeter")
	assert.Equal(t, graph.KindClass, greeter.Kind)
	assert.Equal(t, "Says hello.", greeter.DocComment)

	ctor := symbolNamed(t, res, "__init__")
	assert.Equal(t, graph.KindConstructor, ctor.Kind)
	assert.Equal(t, greeter.ID, ctor.ParentID)
	assert.Equal(t, graph.VisibilityPublic, ctor.Visibility)

	greet := symbolNamed(t, res, "greet")
	formatName := symbolNamed(t, res, "format_name")
	assert.Equal(t, graph.KindMethod, greet.Kind)

	assert.Equal(t, graph.KindConstant, symbolNamed(t, res, "MAX_SIZE").Kind)
	assert.Equal(t, graph.VisibilityPrivate, symbolNamed(t, res, "_private").Visibility)

	_, ok := relBetween(res, greet.ID, formatName.ID, graph.RelCalls)
	assert.True(t, ok, "self.format_name() should resolve locally")

	base := symbolNamed(t, res, "Base")
	ext, ok := relBetween(res, greeter.ID, base.ID, graph.RelExtends)
	require.True(t, ok)
	assert.InDelta(t, graph.ConfidenceLocal, ext.Confidence, 1e-9)

	_, ok = relBetween(res, symbolNamed(t, res, "_private").ID, greeter.ID, graph.RelCalls)
	assert.True(t, ok, "class instantiation resolves to the class")

	imported := pendingNamed(res, "helper_function")
	require.Len(t, imported, 1)
	assert.InDelta(t, graph.ConfidencePendingImport, imported[0].Confidence, 1e-9)

	assert.Empty(t, pendingNamed(res, "print"))
	assert.Empty(t, pendingNamed(res, "upper"))
}

func TestExtract_PythonMethodAttributesNotSymbols(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "python", "greeter.py", pySample)
	for _, s := range res.Symbols {
		assert.NotEqual(t, "name", s.Name, "self.name is not a definition")
	}
}

// =============================================================================
// JavaScript / TypeScript
// =============================================================================

const jsSample = `import { render } from './view.js';

const LIMIT = 5;

class Widget extends Component {
  constructor(props) {
    super(props);
    this.props = props;
  }

  draw() {
    console.log("drawing");
    this.layout();
    return render(this);
  }

  layout() {}
}

const build = () => new Widget({});

function main() {
  const items = [1, 2].map(x => x * 2);
  build();
  fetchRemote();
}
`

func TestExtract_JavaScript(t *testing.T) {
	t.Parallel()
	res := extractSource(t, "javascript", "src/widget.js", jsSample)

	widget := symbolNamed(t, res, "Widget")
	draw := symbolNamed(t, res, "draw")
	layout := symbolNamed(t, res, "layout")
	build := symbolNamed(t, res, "build")
	main := symbolNamed(t, res, "main")

	assert.Equal(t, graph.KindConstructor, symbolNamed(t, res, "constructor").Kind)
	assert.Equal(t, graph.KindFunction, build.Kind)
	assert.Equal(t, graph.KindConstant, symbolNamed(t, res, "LIMIT").Kind)
	assert.Equal(t, widget.ID, draw.ParentID)

	for _, s := range res.Symbols {
		assert.NotEqual(t, "items", s.Name, "function locals are not symbols")
	}

	_, ok := relBetween(res, draw.ID, layout.ID, graph.RelCalls)
	assert.True(t, ok)
	_, ok = relBetween(res, main.ID, build.ID, graph.RelCalls)
	assert.True(t, ok)
	_, ok = relBetween(res, build.ID, widget.ID, graph.RelInstantiates)
	assert.True(t, ok)

	ext := pendingNamed(res, "Component")
	require.Len(t, ext, 1)
	assert.Equal(t, graph.RelExtends, ext[0].Kind)
	assert.Equal(t, widget.ID, ext[0].FromSymbolID)

	require.Len(t, pendingNamed(res, "render"), 1)
	assert.InDelta(t, graph.ConfidencePendingImport, pendingNamed(res, "render")[0].Confidence, 1e-9)
	require.Len(t, pendingNamed(res, "fetchRemote"), 1)

	for _, name := range []string{"log", "map", "super"} {
		assert.Empty(t, pendingNamed(res, name), name)
	}
}

func TestExtract_TypeScriptImplements(t *testing.T) {
	t.Parallel()
	src := `interface Shape {
  area(): number;
}

class Square implements Shape {
  area(): number { return 4; }
}
`
	res := extractSource(t, "typescript", "shape.ts", src)

	shape := symbolNamed(t, res, "Shape")
	square := symbolNamed(t, res, "Square")
	assert.Equal(t, graph.KindInterface, shape.Kind)

	_, ok := relBetween(res, square.ID, shape.ID, graph.RelImplements)
	assert.True(t, ok)
}

// =============================================================================
// Rust
// =============================================================================

func TestExtract_RustImplMembers(t *testing.T) {
	t.Parallel()
	src := `use std::fmt;

pub struct Counter {
    count: u32,
}

impl Counter {
    pub fn new() -> Self {
        Counter { count: 0 }
    }

    fn bump(&mut self) {
        self.count += 1;
        helper();
    }
}

fn helper() {}
`
	res := extractSource(t, "rust", "src/counter.rs", src)

	counter := symbolNamed(t, res, "Counter")
	assert.Equal(t, graph.KindStruct, counter.Kind)
	assert.Equal(t, graph.VisibilityPublic, counter.Visibility)

	newFn := symbolNamed(t, res, "new")
	assert.Equal(t, graph.KindConstructor, newFn.Kind)
	assert.Equal(t, counter.ID, newFn.ParentID)

	bump := symbolNamed(t, res, "bump")
	assert.Equal(t, graph.KindMethod, bump.Kind)
	assert.Equal(t, graph.VisibilityPrivate, bump.Visibility)
	assert.Equal(t, counter.ID, bump.ParentID)

	assert.Equal(t, graph.KindField, symbolNamed(t, res, "count").Kind)

	_, ok := relBetween(res, bump.ID, symbolNamed(t, res, "helper").ID, graph.RelCalls)
	assert.True(t, ok)
	_, ok = relBetween(res, newFn.ID, counter.ID, graph.RelInstantiates)
	assert.True(t, ok)
}

// =============================================================================
// Registry and draft
// =============================================================================

func TestRegistry_Routing(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	for _, lang := range []string{"go", "python", "javascript", "typescript", "rust", "java"} {
		assert.True(t, r.Supports(lang), lang)
	}
	_, err := r.ForLanguage("cobol")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)

	r.Register("cobol", stubExtractor{})
	assert.True(t, r.Supports("cobol"))
	assert.Contains(t, r.Languages(), "cobol")
}

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, Source) (*Result, error) { return &Result{}, nil }

func TestExtract_CancelledContext(t *testing.T) {
	t.Parallel()
	ex, err := NewRegistry().ForLanguage("go")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ex.Extract(ctx, Source{Path: "a.go", Language: "go", Content: []byte(goSample)})
	assert.Error(t, err)
}

func TestDraft_LinkAttribution(t *testing.T) {
	t.Parallel()
	d := NewDraft(Source{Path: "a.py", Language: "python"})

	outer := d.AddSymbol(graph.Symbol{Name: "outer", Kind: graph.KindFunction, StartLine: 1, StartByte: 0, EndByte: 100})
	inner := d.AddSymbol(graph.Symbol{Name: "inner", Kind: graph.KindFunction, StartLine: 2, StartByte: 10, EndByte: 50})
	d.AddSymbol(graph.Symbol{Name: "np", Kind: graph.KindImport, StartLine: 1, StartByte: 0, EndByte: 5})

	assert.Equal(t, inner, d.AddSymbol(graph.Symbol{Name: "inner", Kind: graph.KindFunction, StartLine: 2}),
		"re-adding the same position keeps the first symbol")

	d.AddRef(Ref{Name: "outer", Line: 3, Byte: 20})                  // attributed to inner
	d.AddRef(Ref{Name: "array", Qualifier: "np", Line: 4, Byte: 60}) // imported qualifier
	d.AddRef(Ref{Name: "len", Line: 5, Byte: 70})                    // builtin
	d.AddRef(Ref{Name: "ghost", Line: 6, Byte: 500})                 // outside every symbol
	d.AddRef(Ref{Name: "outer", Line: 3, Byte: 21})                  // duplicate edge

	res := d.Link(BuiltinsFor("python"))

	require.Len(t, res.Relationships, 1)
	assert.Equal(t, inner, res.Relationships[0].FromSymbolID)
	assert.Equal(t, outer, res.Relationships[0].ToSymbolID)
	assert.Equal(t, graph.RelCalls, res.Relationships[0].Kind)

	require.Len(t, res.Pending, 1)
	assert.Equal(t, "array", res.Pending[0].CalleeName)
	assert.Equal(t, outer, res.Pending[0].FromSymbolID)
	assert.InDelta(t, graph.ConfidencePendingImport, res.Pending[0].Confidence, 1e-9)
}

func TestDraft_KindCompatibility(t *testing.T) {
	t.Parallel()
	d := NewDraft(Source{Path: "a.go", Language: "go"})

	fn := d.AddSymbol(graph.Symbol{Name: "run", Kind: graph.KindFunction, StartLine: 1, EndByte: 40})
	d.AddSymbol(graph.Symbol{Name: "Config", Kind: graph.KindVariable, StartLine: 5, StartByte: 50, EndByte: 60})

	d.AddRef(Ref{FromID: fn, Name: "Config", Kind: graph.RelCalls, Line: 2})
	d.AddRef(Ref{FromID: fn, Name: "Config", Kind: graph.RelUses, Line: 3})

	res := d.Link(BuiltinsFor("go"))
	require.Len(t, res.Relationships, 1, "a variable is not a call target")
	assert.Equal(t, graph.RelUses, res.Relationships[0].Kind)
	require.Len(t, res.Pending, 1)
	assert.Equal(t, graph.RelCalls, res.Pending[0].Kind)
}

func TestBuiltins_Has(t *testing.T) {
	t.Parallel()
	tests := []struct {
		lang, name, qualifier string
		want                  bool
	}{
		{"go", "len", "", true},
		{"go", "Println", "fmt", true},
		{"go", "helper", "", false},
		{"python", "print", "", true},
		{"python", "helper", "self", false},
		{"python", "append", "self.items", true},
		{"python", "append", "", false},
		{"javascript", "log", "console", true},
		{"javascript", "push", "items", true},
		{"javascript", "render", "", false},
		{"cobol", "print", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuiltinsFor(tt.lang).Has(tt.name, tt.qualifier), "%s %s.%s", tt.lang, tt.qualifier, tt.name)
	}
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"main.go", "go", true},
		{"app.ts", "typescript", true},
		{"app.tsx", "tsx", true},
		{"app.mjs", "javascript", true},
		{"script.py", "python", true},
		{"lib.rs", "rust", true},
		{"README.md", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
