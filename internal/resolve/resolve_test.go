package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anortham/julie-sub010/internal/graph"
	"github.com/anortham/julie-sub010/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func sym(path, name string, kind graph.SymbolKind, line int) graph.Symbol {
	return graph.Symbol{
		ID:         graph.SymbolID(path, name, line, 0),
		Name:       name,
		Kind:       kind,
		Language:   "go",
		FilePath:   path,
		StartLine:  line,
		EndLine:    line + 1,
		Visibility: graph.VisibilityPublic,
	}
}

func fileSet(path string, syms ...graph.Symbol) store.FileSet {
	return store.FileSet{
		File:    store.File{Path: path, Content: path, Hash: store.ContentHash([]byte(path)), Language: "go"},
		Symbols: syms,
	}
}

func pendingCall(from graph.Symbol, callee string, line int) graph.PendingRelationship {
	return graph.PendingRelationship{
		FromSymbolID: from.ID,
		CalleeName:   callee,
		Kind:         graph.RelCalls,
		FilePath:     from.FilePath,
		LineNumber:   line,
		Confidence:   graph.ConfidencePending,
	}
}

// =============================================================================
// Sweeps against a real store
// =============================================================================

func TestResolve_SingleCandidate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	helper := sym("a.go", "helperFunction", graph.KindFunction, 3)
	caller := sym("b.go", "caller", graph.KindFunction, 1)
	callerSet := fileSet("b.go", caller)
	callerSet.Pending = []graph.PendingRelationship{pendingCall(caller, "helperFunction", 2)}
	require.NoError(t, s.ReplaceFiles(ctx, []store.FileSet{fileSet("a.go", helper), callerSet}))

	st, err := New(s, nil).Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Resolved)
	assert.Equal(t, 1, st.Inserted)
	assert.Zero(t, st.Ambiguous)
	assert.Zero(t, st.Remaining)

	rels, err := s.RelationshipsFrom(ctx, caller.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, helper.ID, rels[0].ToSymbolID)
	assert.Equal(t, graph.RelCalls, rels[0].Kind)
	assert.InDelta(t, 0.7, rels[0].Confidence, 1e-9)
	assert.Equal(t, "helperFunction", rels[0].Metadata["callee_name"])
	assert.Equal(t, ResolutionWorkspace, rels[0].Metadata["resolution"])
	assert.EqualValues(t, 1, rels[0].Metadata["candidates"])

	pending, err := s.PendingRelationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolve_AmbiguousPrefersNearestDirectory(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	near := sym("pkg/util.go", "helper", graph.KindFunction, 10)
	far := sym("other/util.go", "helper", graph.KindFunction, 1)
	caller := sym("pkg/main.go", "main", graph.KindFunction, 1)
	callerSet := fileSet("pkg/main.go", caller)
	callerSet.Pending = []graph.PendingRelationship{pendingCall(caller, "helper", 2)}
	require.NoError(t, s.ReplaceFiles(ctx, []store.FileSet{
		fileSet("other/util.go", far), fileSet("pkg/util.go", near), callerSet,
	}))

	st, err := New(s, nil).Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Resolved)
	assert.Equal(t, 1, st.Ambiguous)

	rels, err := s.RelationshipsFrom(ctx, caller.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1, "ambiguity still produces exactly one edge")
	assert.Equal(t, near.ID, rels[0].ToSymbolID)
	assert.InDelta(t, 0.7*graph.AmbiguityPenalty, rels[0].Confidence, 1e-9)
}

func TestResolve_NoCandidatesBumpsAttempts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	caller := sym("b.go", "caller", graph.KindFunction, 1)
	set := fileSet("b.go", caller)
	set.Pending = []graph.PendingRelationship{pendingCall(caller, "nowhere", 2)}
	require.NoError(t, s.ReplaceFile(ctx, set))

	r := New(s, nil)
	for range 2 {
		st, err := r.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.NoCandidates)
		assert.Equal(t, 1, st.Remaining)
	}

	pending, err := s.PendingByCallee(ctx, "nowhere")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)
}

func TestResolve_NoValidCandidates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	imp := sym("a.go", "helper", graph.KindImport, 1)
	variable := sym("c.go", "helper", graph.KindVariable, 1)
	caller := sym("b.go", "caller", graph.KindFunction, 1)
	callerSet := fileSet("b.go", caller)
	callerSet.Pending = []graph.PendingRelationship{pendingCall(caller, "helper", 2)}
	require.NoError(t, s.ReplaceFiles(ctx, []store.FileSet{fileSet("a.go", imp), fileSet("c.go", variable), callerSet}))

	st, err := New(s, nil).Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.NoValidCandidates)
	assert.Zero(t, st.NoCandidates)
	assert.Zero(t, st.Resolved)

	rels, err := s.Relationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	helper := sym("a.go", "helper", graph.KindFunction, 3)
	caller := sym("b.go", "caller", graph.KindFunction, 1)
	callerSet := fileSet("b.go", caller)
	callerSet.Pending = []graph.PendingRelationship{pendingCall(caller, "helper", 2), pendingCall(caller, "helper", 5)}
	require.NoError(t, s.ReplaceFiles(ctx, []store.FileSet{fileSet("a.go", helper), callerSet}))

	r := New(s, nil)
	first, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Total)
	assert.Zero(t, second.Inserted)

	rels, err := s.Relationships(ctx)
	require.NoError(t, err)
	assert.Len(t, rels, 2)
}

func TestResolve_EitherOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	r := New(s, nil)

	caller := sym("b.go", "caller", graph.KindFunction, 1)
	callerSet := fileSet("b.go", caller)
	callerSet.Pending = []graph.PendingRelationship{pendingCall(caller, "helperFunction", 2)}
	require.NoError(t, s.ReplaceFile(ctx, callerSet))

	st, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Resolved)

	helper := sym("a.go", "helperFunction", graph.KindFunction, 3)
	require.NoError(t, s.ReplaceFile(ctx, fileSet("a.go", helper)))

	st, err = r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Resolved)

	rels, err := s.RelationshipsTo(ctx, helper.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, caller.ID, rels[0].FromSymbolID)
}

func TestResolve_CancelledLeavesQueue(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	helper := sym("a.go", "helper", graph.KindFunction, 3)
	caller := sym("b.go", "caller", graph.KindFunction, 1)
	callerSet := fileSet("b.go", caller)
	callerSet.Pending = []graph.PendingRelationship{pendingCall(caller, "helper", 2)}
	require.NoError(t, s.ReplaceFiles(context.Background(), []store.FileSet{fileSet("a.go", helper), callerSet}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(s, nil).Resolve(ctx)
	require.Error(t, err)

	pending, err := s.PendingRelationships(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// =============================================================================
// Candidate validity and ranking
// =============================================================================

func TestValid(t *testing.T) {
	t.Parallel()
	caller := sym("b.go", "caller", graph.KindFunction, 1)

	tests := []struct {
		name string
		rel  graph.RelationshipKind
		kind graph.SymbolKind
		want bool
	}{
		{"call function", graph.RelCalls, graph.KindFunction, true},
		{"call class", graph.RelCalls, graph.KindClass, true},
		{"call variable", graph.RelCalls, graph.KindVariable, false},
		{"call import", graph.RelCalls, graph.KindImport, false},
		{"extends interface", graph.RelExtends, graph.KindInterface, true},
		{"extends function", graph.RelExtends, graph.KindFunction, false},
		{"implements trait", graph.RelImplements, graph.KindTrait, true},
		{"uses variable", graph.RelUses, graph.KindVariable, true},
		{"uses export", graph.RelUses, graph.KindExport, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, valid(caller, tt.rel, sym("a.go", "x", tt.kind, 1)))
		})
	}

	assert.False(t, valid(caller, graph.RelCalls, caller), "a symbol never targets itself")
}

func TestPick_RankingOrder(t *testing.T) {
	t.Parallel()
	caller := sym("svc/api/handler.go", "handle", graph.KindFunction, 1)

	t.Run("language first", func(t *testing.T) {
		t.Parallel()
		py := sym("svc/api/util.py", "run", graph.KindFunction, 1)
		py.Language = "python"
		gofn := sym("far/away/util.go", "run", graph.KindFunction, 1)
		assert.Equal(t, gofn.ID, pick(caller, graph.RelCalls, []graph.Symbol{py, gofn}).ID)
	})

	t.Run("kind preference for calls", func(t *testing.T) {
		t.Parallel()
		class := sym("svc/api/a.go", "Run", graph.KindClass, 1)
		method := sym("other/b.go", "Run", graph.KindMethod, 1)
		assert.Equal(t, method.ID, pick(caller, graph.RelCalls, []graph.Symbol{class, method}).ID)
	})

	t.Run("kind preference for implements", func(t *testing.T) {
		t.Parallel()
		class := sym("svc/api/a.go", "Reader", graph.KindClass, 1)
		iface := sym("other/b.go", "Reader", graph.KindInterface, 1)
		assert.Equal(t, iface.ID, pick(caller, graph.RelImplements, []graph.Symbol{class, iface}).ID)
	})

	t.Run("proximity", func(t *testing.T) {
		t.Parallel()
		same := sym("svc/api/z.go", "f", graph.KindFunction, 1)
		parent := sym("svc/a.go", "f", graph.KindFunction, 1)
		cousin := sym("svc/db/a.go", "f", graph.KindFunction, 1)
		stranger := sym("lib/a.go", "f", graph.KindFunction, 1)
		ordered := []graph.Symbol{stranger, cousin, parent, same}
		assert.Equal(t, same.ID, pick(caller, graph.RelCalls, ordered).ID)
		assert.Equal(t, parent.ID, pick(caller, graph.RelCalls, ordered[:3]).ID)
		assert.Equal(t, cousin.ID, pick(caller, graph.RelCalls, ordered[:2]).ID, "longer common prefix wins")
	})

	t.Run("visibility", func(t *testing.T) {
		t.Parallel()
		private := sym("lib/a.go", "f", graph.KindFunction, 1)
		private.Visibility = graph.VisibilityPrivate
		internal := sym("lib/b.go", "f", graph.KindFunction, 1)
		internal.Visibility = graph.VisibilityInternal
		public := sym("lib/c.go", "f", graph.KindFunction, 1)
		assert.Equal(t, public.ID, pick(caller, graph.RelCalls, []graph.Symbol{private, internal, public}).ID)
		assert.Equal(t, internal.ID, pick(caller, graph.RelCalls, []graph.Symbol{private, internal}).ID)
	})

	t.Run("lexical fallback is order independent", func(t *testing.T) {
		t.Parallel()
		a := sym("lib/a.go", "f", graph.KindFunction, 9)
		b := sym("lib/a.go", "f", graph.KindFunction, 2)
		c := sym("lib/b.go", "f", graph.KindFunction, 1)
		want := b.ID
		for _, order := range [][]graph.Symbol{{a, b, c}, {c, b, a}, {b, c, a}} {
			assert.Equal(t, want, pick(caller, graph.RelCalls, order).ID)
		}
	})
}

func TestProximity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b       string
		tier, comm int
	}{
		{"pkg/a.go", "pkg/b.go", 0, 1},
		{"a.go", "b.go", 0, 0},
		{"pkg/a.go", "pkg/sub/b.go", 1, 1},
		{"pkg/sub/a.go", "pkg/b.go", 1, 1},
		{"pkg/x/a.go", "pkg/y/b.go", 2, 1},
		{"pkg/a.go", "pkg/sub/deep/b.go", 2, 1},
		{"a/b.go", "c/d.go", 2, 0},
	}
	for _, tt := range tests {
		tier, common := proximity(tt.a, tt.b)
		assert.Equal(t, tt.tier, tier, "%s vs %s", tt.a, tt.b)
		assert.Equal(t, tt.comm, common, "%s vs %s", tt.a, tt.b)
	}
}
