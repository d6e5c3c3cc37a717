package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anortham/julie-sub010/internal/graph"
)

func TestBatch_AddReplacesSamePath(t *testing.T) {
	t.Parallel()
	b := NewBatch()

	b.Add(FileSet{File: testFile("a.go", "v1"), Symbols: []graph.Symbol{testSymbol("a.go", "x", graph.KindFunction, 1)}})
	b.Add(FileSet{File: testFile("b.go", "b")})
	b.Add(FileSet{File: testFile("a.go", "v2")})

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, b.Rows(), "replaced set's symbol no longer counts")

	sets := b.Drain()
	require.Len(t, sets, 2)
	assert.Equal(t, "v2", sets[0].File.Content)
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Rows())
}

func TestBatch_ConcurrentAdd(t *testing.T) {
	t.Parallel()
	b := NewBatch()

	var wg sync.WaitGroup
	for _, name := range []string{"a.go", "b.go", "c.go", "d.go"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add(FileSet{File: testFile(name, name)})
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, b.Len())
}

func TestCommitBatch_WritesAndDrains(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	b := NewBatch()
	b.Add(FileSet{File: testFile("a.go", "a"), Symbols: []graph.Symbol{testSymbol("a.go", "Foo", graph.KindFunction, 1)}})
	b.Add(FileSet{File: testFile("b.go", "b"), Symbols: []graph.Symbol{testSymbol("b.go", "Bar", graph.KindStruct, 1)}})

	sets, err := s.CommitBatch(ctx, b)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
	assert.Zero(t, b.Len())

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 2, st.Symbols)
	assert.Equal(t, 2, st.Languages["go"])
	requireMirrorsInSync(t, s)
}

func TestCommitBatch_OneBadFileRollsBackSet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	good := testSymbol("a.go", "Foo", graph.KindFunction, 1)
	bad := testSymbol("b.go", "Bar", graph.KindFunction, 1)
	b := NewBatch()
	b.Add(FileSet{File: testFile("a.go", "a"), Symbols: []graph.Symbol{good}})
	b.Add(FileSet{
		File:          testFile("b.go", "b"),
		Symbols:       []graph.Symbol{bad},
		Relationships: []graph.Relationship{testEdge(bad, testSymbol("b.go", "nowhere", graph.KindFunction, 9), graph.RelCalls, 2)},
	})

	sets, err := s.CommitBatch(ctx, b)
	require.Error(t, err)
	require.Len(t, sets, 2)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Files)
	assert.Zero(t, st.Symbols)
}
