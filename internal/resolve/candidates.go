package resolve

import (
	"cmp"
	"path"
	"slices"
	"strings"

	"github.com/anortham/julie-sub010/internal/graph"
)

// valid reports whether sym can be the target of a kind edge from caller.
func valid(caller graph.Symbol, kind graph.RelationshipKind, sym graph.Symbol) bool {
	if sym.ID == caller.ID {
		return false
	}
	switch sym.Kind {
	case graph.KindImport, graph.KindExport:
		return false
	}
	switch kind {
	case graph.RelCalls, graph.RelInstantiates:
		return sym.Kind.Callable()
	case graph.RelExtends, graph.RelImplements:
		return sym.Kind.IsType()
	}
	return true
}

// filterValid keeps the candidates a kind edge from caller may target.
func filterValid(caller graph.Symbol, kind graph.RelationshipKind, cands []graph.Symbol) []graph.Symbol {
	var out []graph.Symbol
	for _, c := range cands {
		if valid(caller, kind, c) {
			out = append(out, c)
		}
	}
	return out
}

// pick returns the highest-ranked candidate. Ranking compares, in order:
// language, kind preference for the edge, directory proximity, visibility,
// then file path, start line and id.
func pick(caller graph.Symbol, kind graph.RelationshipKind, cands []graph.Symbol) graph.Symbol {
	ranked := slices.Clone(cands)
	slices.SortFunc(ranked, func(a, b graph.Symbol) int {
		return compareCandidates(caller, kind, a, b)
	})
	return ranked[0]
}

func compareCandidates(caller graph.Symbol, kind graph.RelationshipKind, a, b graph.Symbol) int {
	aTier, aCommon := proximity(caller.FilePath, a.FilePath)
	bTier, bCommon := proximity(caller.FilePath, b.FilePath)
	return cmp.Or(
		cmp.Compare(languageRank(caller, a), languageRank(caller, b)),
		cmp.Compare(kindRank(kind, a.Kind), kindRank(kind, b.Kind)),
		cmp.Compare(aTier, bTier),
		cmp.Compare(bCommon, aCommon),
		cmp.Compare(visibilityRank(a.Visibility), visibilityRank(b.Visibility)),
		cmp.Compare(a.FilePath, b.FilePath),
		cmp.Compare(a.StartLine, b.StartLine),
		cmp.Compare(a.ID, b.ID),
	)
}

func languageRank(caller, sym graph.Symbol) int {
	if sym.Language == caller.Language {
		return 0
	}
	return 1
}

func kindRank(rel graph.RelationshipKind, k graph.SymbolKind) int {
	switch rel {
	case graph.RelCalls, graph.RelInstantiates:
		switch k {
		case graph.KindFunction, graph.KindMethod:
			return 0
		case graph.KindConstructor:
			return 1
		case graph.KindClass, graph.KindStruct:
			return 2
		}
		return 3
	case graph.RelImplements:
		if k == graph.KindInterface || k == graph.KindTrait {
			return 0
		}
		return 1
	case graph.RelExtends:
		if k == graph.KindClass {
			return 0
		}
		return 1
	}
	return 0
}

// proximity places b relative to a: tier 0 is the same directory, 1 a
// parent or child directory, 2 anything else. common counts the shared
// leading path segments.
func proximity(a, b string) (tier, common int) {
	da, db := path.Dir(a), path.Dir(b)
	as, bs := segments(da), segments(db)
	for common < len(as) && common < len(bs) && as[common] == bs[common] {
		common++
	}
	switch {
	case da == db:
		tier = 0
	case (common == len(as) || common == len(bs)) && abs(len(as)-len(bs)) == 1:
		tier = 1
	default:
		tier = 2
	}
	return tier, common
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func segments(dir string) []string {
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

func visibilityRank(v graph.Visibility) int {
	switch v {
	case graph.VisibilityPublic:
		return 0
	case graph.VisibilityPrivate:
		return 2
	}
	return 1
}
