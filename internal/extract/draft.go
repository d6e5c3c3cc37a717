package extract

import (
	"github.com/anortham/julie-sub010/internal/graph"
)

// Ref is a raw, unresolved reference collected while walking a file.
type Ref struct {
	// FromID is the referencing symbol. When empty, Link attributes the
	// reference to the innermost symbol whose byte range contains Byte.
	FromID    string
	Name      string
	Qualifier string // receiver or module text, "" for a bare name
	Kind      graph.RelationshipKind
	Line      int
	Byte      int
}

// Draft accumulates one file's symbols and raw references until Link turns
// them into a Result. It is shared by every front-end so the same-file
// resolution rules live in one place.
type Draft struct {
	src     Source
	symbols []graph.Symbol
	index   map[string]int
	byName  map[string][]int
	refs    []Ref
}

// NewDraft starts a draft for src.
func NewDraft(src Source) *Draft {
	return &Draft{
		src:    src,
		index:  make(map[string]int),
		byName: make(map[string][]int),
	}
}

// AddSymbol records sym, filling in its id, file path and language. A
// symbol whose id is already present is dropped and the existing id
// returned.
func (d *Draft) AddSymbol(sym graph.Symbol) string {
	sym.FilePath = d.src.Path
	if sym.Language == "" {
		sym.Language = d.src.Language
	}
	if sym.Visibility == "" {
		sym.Visibility = graph.VisibilityPublic
	}
	sym.ID = graph.SymbolID(sym.FilePath, sym.Name, sym.StartLine, sym.StartColumn)
	if _, dup := d.index[sym.ID]; dup {
		return sym.ID
	}
	d.index[sym.ID] = len(d.symbols)
	d.byName[sym.Name] = append(d.byName[sym.Name], len(d.symbols))
	d.symbols = append(d.symbols, sym)
	return sym.ID
}

// Symbol returns the drafted symbol with the given id.
func (d *Draft) Symbol(id string) (graph.Symbol, bool) {
	i, ok := d.index[id]
	if !ok {
		return graph.Symbol{}, false
	}
	return d.symbols[i], true
}

// SetParent points symbol id at parentID.
func (d *Draft) SetParent(id, parentID string) {
	if i, ok := d.index[id]; ok {
		d.symbols[i].ParentID = parentID
	}
}

// SetKind changes the kind of symbol id.
func (d *Draft) SetKind(id string, kind graph.SymbolKind) {
	if i, ok := d.index[id]; ok {
		d.symbols[i].Kind = kind
	}
}

// Lookup returns the ids of drafted symbols named name, in source order.
func (d *Draft) Lookup(name string) []string {
	var ids []string
	for _, i := range d.byName[name] {
		ids = append(ids, d.symbols[i].ID)
	}
	return ids
}

// AddRef records a raw reference.
func (d *Draft) AddRef(ref Ref) {
	if ref.Name == "" {
		return
	}
	d.refs = append(d.refs, ref)
}

// Symbols returns the drafted symbols.
func (d *Draft) Symbols() []graph.Symbol {
	return d.symbols
}

// enclosing returns the innermost non-import symbol whose byte range
// contains off.
func (d *Draft) enclosing(off int) string {
	best := -1
	for i := range d.symbols {
		s := &d.symbols[i]
		if s.Kind == graph.KindImport || s.Kind == graph.KindExport {
			continue
		}
		if off < s.StartByte || off >= s.EndByte {
			continue
		}
		if best < 0 || s.EndByte-s.StartByte < d.symbols[best].EndByte-d.symbols[best].StartByte {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return d.symbols[best].ID
}

// Link resolves each raw reference against the file's own symbols:
//
//   - builtin names are dropped,
//   - a kind-compatible local definition yields a Relationship at
//     ConfidenceLocal,
//   - anything else becomes a PendingRelationship, at
//     ConfidencePendingImport when the name (or its qualifier) was imported
//     in this file and ConfidencePending otherwise.
func (d *Draft) Link(builtins Builtins) *Result {
	res := &Result{Symbols: d.symbols}
	seenRel := make(map[string]bool)
	type pendingKey struct {
		from, name string
		kind       graph.RelationshipKind
		line       int
	}
	seenPending := make(map[pendingKey]bool)

	for _, ref := range d.refs {
		from := ref.FromID
		if from == "" {
			from = d.enclosing(ref.Byte)
		}
		if from == "" {
			continue
		}
		if _, ok := d.index[from]; !ok {
			continue
		}
		if builtins.Has(ref.Name, ref.Qualifier) {
			continue
		}
		if ref.Kind == "" {
			ref.Kind = graph.RelCalls
		}

		target, imported := d.localTarget(ref, from)
		if target != "" {
			id := graph.RelationshipID(from, target, ref.Kind, d.src.Path, ref.Line)
			if seenRel[id] {
				continue
			}
			seenRel[id] = true
			res.Relationships = append(res.Relationships, graph.Relationship{
				ID:           id,
				FromSymbolID: from,
				ToSymbolID:   target,
				Kind:         ref.Kind,
				FilePath:     d.src.Path,
				LineNumber:   ref.Line,
				Confidence:   graph.ConfidenceLocal,
			})
			continue
		}

		key := pendingKey{from, ref.Name, ref.Kind, ref.Line}
		if seenPending[key] {
			continue
		}
		seenPending[key] = true
		conf := graph.ConfidencePending
		if imported {
			conf = graph.ConfidencePendingImport
		}
		res.Pending = append(res.Pending, graph.PendingRelationship{
			FromSymbolID: from,
			CalleeName:   ref.Name,
			Kind:         ref.Kind,
			FilePath:     d.src.Path,
			LineNumber:   ref.Line,
			Confidence:   conf,
		})
	}
	return res
}

// localTarget picks the best same-file definition for ref. imported reports
// whether the name or its qualifier is bound by an import in this file.
func (d *Draft) localTarget(ref Ref, from string) (target string, imported bool) {
	if ref.Qualifier != "" {
		for _, i := range d.byName[qualifierRoot(ref.Qualifier)] {
			if d.symbols[i].Kind == graph.KindImport {
				return "", true
			}
		}
	}

	caller := d.symbols[d.index[from]]
	best := -1
	for _, i := range d.byName[ref.Name] {
		s := &d.symbols[i]
		switch s.Kind {
		case graph.KindImport:
			imported = true
			continue
		case graph.KindExport:
			continue
		}
		if !acceptsKind(ref.Kind, s.Kind) {
			continue
		}
		if best < 0 || betterLocal(s, &d.symbols[best], &caller) {
			best = i
		}
	}
	if best < 0 {
		return "", imported
	}
	return d.symbols[best].ID, false
}

// acceptsKind reports whether an edge of kind rel may target a symbol of
// kind k.
func acceptsKind(rel graph.RelationshipKind, k graph.SymbolKind) bool {
	switch rel {
	case graph.RelCalls, graph.RelInstantiates:
		return k.Callable()
	case graph.RelExtends, graph.RelImplements:
		return k.IsType()
	}
	return k != graph.KindImport && k != graph.KindExport
}

// betterLocal orders same-file candidates: siblings of the caller first,
// then functions and methods ahead of types, then source order.
func betterLocal(a, b, caller *graph.Symbol) bool {
	aSib, bSib := a.ParentID == caller.ParentID, b.ParentID == caller.ParentID
	if aSib != bSib {
		return aSib
	}
	aFn := a.Kind == graph.KindFunction || a.Kind == graph.KindMethod
	bFn := b.Kind == graph.KindFunction || b.Kind == graph.KindMethod
	if aFn != bFn {
		return aFn
	}
	return a.StartByte < b.StartByte
}
