package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolID_Deterministic(t *testing.T) {
	t.Parallel()
	a := SymbolID("/src/a.go", "helper", 3, 0)
	b := SymbolID("/src/a.go", "helper", 3, 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestSymbolID_DiffersByPosition(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, SymbolID("/src/a.go", "helper", 3, 0), SymbolID("/src/a.go", "helper", 4, 0))
	assert.NotEqual(t, SymbolID("/src/a.go", "helper", 3, 0), SymbolID("/src/b.go", "helper", 3, 0))
	assert.NotEqual(t, SymbolID("/src/a.go", "helper", 3, 0), SymbolID("/src/a.go", "helpers", 3, 0))
}

func TestSymbolID_NoFieldBleed(t *testing.T) {
	t.Parallel()
	// Joined fields must not collide when characters move across a boundary.
	assert.NotEqual(t, SymbolID("/a", "bc", 1, 0), SymbolID("/ab", "c", 1, 0))
}

func TestRelationshipID(t *testing.T) {
	t.Parallel()
	id := RelationshipID("from", "to", RelCalls, "/a.go", 10)
	assert.Equal(t, id, RelationshipID("from", "to", RelCalls, "/a.go", 10))
	assert.NotEqual(t, id, RelationshipID("from", "to", RelUses, "/a.go", 10))
	assert.NotEqual(t, id, RelationshipID("from", "to", RelCalls, "/a.go", 11))
}

func TestSymbolKind_Callable(t *testing.T) {
	t.Parallel()
	assert.True(t, KindFunction.Callable())
	assert.True(t, KindMethod.Callable())
	assert.True(t, KindClass.Callable())
	assert.False(t, KindVariable.Callable())
	assert.False(t, KindImport.Callable())
}

func TestSymbolKind_IsType(t *testing.T) {
	t.Parallel()
	assert.True(t, KindInterface.IsType())
	assert.True(t, KindTrait.IsType())
	assert.False(t, KindFunction.IsType())
}

func TestCrossFileConfidence(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.7, CrossFileConfidence(ConfidencePending, 1), 1e-9)
	assert.InDelta(t, 0.8, CrossFileConfidence(0.95, 1), 1e-9)
	assert.InDelta(t, 0.63, CrossFileConfidence(ConfidencePending, 2), 1e-9)
	assert.Less(t, CrossFileConfidence(ConfidencePendingImport, 1), ConfidenceLocal)
}

func TestClampConfidence(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, ClampConfidence(-1))
	assert.Equal(t, 1.0, ClampConfidence(3))
	assert.Equal(t, 0.5, ClampConfidence(0.5))
}
