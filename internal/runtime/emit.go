package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/anortham/julie-sub010/internal/extract"
	"github.com/anortham/julie-sub010/internal/graph"
)

// Host functions that feed a Draft. Risor scripts cannot construct Go
// structs, so these accept maps with primitive values (and optionally a
// proxied node for positions) and build graph values Go-side.

// makeEmitSymbolFn creates "emit_symbol".
//
// emit_symbol({name, kind, node?, start_line?, ..., parent_id?}) → id
func makeEmitSymbolFn(d *extract.Draft) *object.Builtin {
	return object.NewBuiltin("emit_symbol", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit_symbol", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("emit_symbol: %v", err)
		}
		name := getString(m, "name")
		if name == "" {
			return object.Errorf("emit_symbol: name is required")
		}
		kind := graph.SymbolKind(getStringDefault(m, "kind", string(graph.KindFunction)))

		sym := graph.Symbol{
			Name:        name,
			Kind:        kind,
			StartLine:   getInt(m, "start_line"),
			StartColumn: getInt(m, "start_column"),
			EndLine:     getInt(m, "end_line"),
			EndColumn:   getInt(m, "end_column"),
			StartByte:   getInt(m, "start_byte"),
			EndByte:     getInt(m, "end_byte"),
			Signature:   getString(m, "signature"),
			Visibility:  graph.Visibility(getString(m, "visibility")),
			ParentID:    getString(m, "parent_id"),
			DocComment:  getString(m, "doc_comment"),
		}
		if node, ok := getNode(m, "node"); ok {
			sym.StartLine = int(node.StartPoint().Row) + 1
			sym.StartColumn = int(node.StartPoint().Column)
			sym.EndLine = int(node.EndPoint().Row) + 1
			sym.EndColumn = int(node.EndPoint().Column)
			sym.StartByte = int(node.StartByte())
			sym.EndByte = int(node.EndByte())
		}
		if sym.StartLine <= 0 {
			return object.Errorf("emit_symbol: %q needs a node or start_line", name)
		}
		if sym.EndLine < sym.StartLine {
			sym.EndLine = sym.StartLine
		}
		return object.NewString(d.AddSymbol(sym))
	})
}

// makeEmitReferenceFn creates "emit_reference".
//
// emit_reference({name, kind?, qualifier?, node?, line?, byte?, from_id?})
func makeEmitReferenceFn(d *extract.Draft) *object.Builtin {
	return object.NewBuiltin("emit_reference", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit_reference", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("emit_reference: %v", err)
		}
		ref := extract.Ref{
			FromID:    getString(m, "from_id"),
			Name:      getString(m, "name"),
			Qualifier: getString(m, "qualifier"),
			Kind:      graph.RelationshipKind(getStringDefault(m, "kind", string(graph.RelCalls))),
			Line:      getInt(m, "line"),
			Byte:      getInt(m, "byte"),
		}
		if ref.Name == "" {
			return object.Errorf("emit_reference: name is required")
		}
		if node, ok := getNode(m, "node"); ok {
			ref.Line = int(node.StartPoint().Row) + 1
			ref.Byte = int(node.StartByte())
		}
		d.AddRef(ref)
		return object.Nil
	})
}

// makeSetParentFn creates "set_parent".
//
// set_parent(child_id, parent_id)
func makeSetParentFn(d *extract.Draft) *object.Builtin {
	return object.NewBuiltin("set_parent", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("set_parent", 2, len(args))
		}
		child, err := toString(args[0])
		if err != nil {
			return object.Errorf("set_parent: %v", err)
		}
		parent, err := toString(args[1])
		if err != nil {
			return object.Errorf("set_parent: %v", err)
		}
		d.SetParent(child, parent)
		return object.Nil
	})
}

// makeLookupFn creates "lookup", returning ids of symbols already emitted
// under name.
//
// lookup(name) → [id]
func makeLookupFn(d *extract.Draft) *object.Builtin {
	return object.NewBuiltin("lookup", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("lookup", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("lookup: %v", err)
		}
		ids := d.Lookup(name)
		items := make([]object.Object, 0, len(ids))
		for _, id := range ids {
			items = append(items, object.NewString(id))
		}
		return object.NewList(items)
	})
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getInt(m map[string]object.Object, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return int(i.Value())
	}
	if f, ok := v.(*object.Float); ok {
		return int(f.Value())
	}
	return 0
}

func getNode(m map[string]object.Object, key string) (*sitter.Node, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	p, ok := v.(*object.Proxy)
	if !ok {
		return nil, false
	}
	node, ok := p.Interface().(*sitter.Node)
	return node, ok && node != nil
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
