package extract

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/anortham/julie-sub010/internal/graph"
)

const maxSignatureLen = 200

// TreeSitterExtractor is the table-driven front-end shared by every
// built-in language. The per-language behaviour lives in langRules.
type TreeSitterExtractor struct {
	language string
	rules    *langRules
	timeout  time.Duration
}

// Extract parses src and walks the tree. Syntax errors do not fail the
// file: ERROR nodes are walked like any other node so whatever parsed
// cleanly still yields symbols.
func (e *TreeSitterExtractor) Extract(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lang, ok := GrammarForLanguage(e.language)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, e.language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	parseCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		parseCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	tree, err := parser.ParseCtx(parseCtx, nil, src.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Path, err)
	}
	defer tree.Close()

	if src.Language == "" {
		src.Language = e.language
	}
	w := &walker{
		src:   src.Content,
		rules: e.rules,
		draft: NewDraft(src),
	}
	if err := w.walk(ctx, tree.RootNode()); err != nil {
		return nil, err
	}
	w.finish()
	return w.draft.Link(BuiltinsFor(e.language)), nil
}

// frame is one entry of the explicit traversal stack.
type frame struct {
	node  *sitter.Node
	scope string // id of the innermost enclosing symbol, "" at file level
}

// typeLink defers an edge or parent assignment until every type in the
// file is known (Go receivers, Rust impl blocks).
type typeLink struct {
	symbolID string
	typeName string
	kind     graph.RelationshipKind // "" means parent assignment only
	target   string                 // for trait/interface edges from the type
	line     int
}

type walker struct {
	src       []byte
	rules     *langRules
	draft     *Draft
	typeLinks []typeLink
}

func (w *walker) walk(ctx context.Context, root *sitter.Node) error {
	stack := []frame{{node: root}}
	visited := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node

		visited++
		if visited%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		scope := f.scope
		typ := n.Type()
		if rule, ok := w.rules.defs[typ]; ok {
			if id := w.define(n, rule, f.scope); id != "" {
				scope = id
			}
		}
		if rule, ok := w.rules.calls[typ]; ok {
			w.call(n, rule, f.scope)
		}
		if w.rules.imports[typ] {
			w.importNames(n)
		}
		if w.rules.onNode != nil {
			w.rules.onNode(w, n, f.scope)
		}

		count := int(n.NamedChildCount())
		for i := count - 1; i >= 0; i-- {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			stack = append(stack, frame{node: child, scope: scope})
		}
	}
	return nil
}

// define records a definition node as a symbol and returns its id, or ""
// when the node does not produce one.
func (w *walker) define(n *sitter.Node, rule defRule, scope string) string {
	var enclosing graph.SymbolKind
	if scope != "" {
		if s, ok := w.draft.Symbol(scope); ok {
			enclosing = s.Kind
		}
	}

	kind := rule.kind
	if rule.kindOf != nil {
		k, ok := rule.kindOf(n, w.src, enclosing)
		if !ok {
			return ""
		}
		kind = k
	}
	if rule.member != "" && enclosing.IsType() {
		kind = rule.member
	}

	nameNode := rule.nameNode(n)
	if nameNode == nil {
		return ""
	}
	name := strings.TrimSpace(nameNode.Content(w.src))
	if name == "" {
		return ""
	}
	if kind == graph.KindMethod && w.rules.constructors[name] {
		kind = graph.KindConstructor
	}

	sp, ep := n.StartPoint(), n.EndPoint()
	sym := graph.Symbol{
		Name:        name,
		Kind:        kind,
		StartLine:   int(sp.Row) + 1,
		StartColumn: int(sp.Column),
		EndLine:     int(ep.Row) + 1,
		EndColumn:   int(ep.Column),
		StartByte:   int(n.StartByte()),
		EndByte:     int(n.EndByte()),
		Signature:   signature(n, w.src),
		Visibility:  w.rules.visibility(n, name, w.src),
		ParentID:    scope,
		DocComment:  w.docComment(n),
	}
	id := w.draft.AddSymbol(sym)

	if rule.heritage {
		w.heritage(n, id)
	}
	if rule.hook != nil {
		rule.hook(w, n, id)
	}
	return id
}

// call records a call-site reference from the enclosing symbol.
func (w *walker) call(n *sitter.Node, rule callRule, scope string) {
	if scope == "" {
		return
	}
	name, qualifier := rule.callee(n, w.src)
	if name == "" {
		return
	}
	kind := rule.kind
	if kind == "" {
		kind = graph.RelCalls
	}
	w.draft.AddRef(Ref{
		FromID:    scope,
		Name:      name,
		Qualifier: qualifier,
		Kind:      kind,
		Line:      int(n.StartPoint().Row) + 1,
		Byte:      int(n.StartByte()),
	})
}

// importNames records import bindings as symbols of kind import so Link can
// tell imported names from unknown ones.
func (w *walker) importNames(n *sitter.Node) {
	var names []*sitter.Node
	if w.rules.importBindings != nil {
		names = w.rules.importBindings(n, w.src)
	} else if last := lastIdentifier(n); last != nil {
		names = []*sitter.Node{last}
	}
	for _, nn := range names {
		name := strings.Trim(nn.Content(w.src), "\"'`")
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
		if name == "" || name == "_" || name == "*" {
			continue
		}
		sp, ep := nn.StartPoint(), nn.EndPoint()
		w.draft.AddSymbol(graph.Symbol{
			Name:        name,
			Kind:        graph.KindImport,
			StartLine:   int(sp.Row) + 1,
			StartColumn: int(sp.Column),
			EndLine:     int(ep.Row) + 1,
			EndColumn:   int(ep.Column),
			StartByte:   int(nn.StartByte()),
			EndByte:     int(nn.EndByte()),
			Signature:   collapse(n.Content(w.src)),
			Visibility:  graph.VisibilityPrivate,
		})
	}
}

// heritage emits extends/implements references for the clauses attached to
// a type definition. Clause bodies are not descended into.
func (w *walker) heritage(n *sitter.Node, id string) {
	body := n.ChildByFieldName("body")
	queue := []*sitter.Node{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || (body != nil && c.StartByte() == body.StartByte() && c.EndByte() == body.EndByte()) {
			continue
		}
		queue = append(queue, c)
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		kind, ok := w.rules.heritage[c.Type()]
		if !ok {
			if c.Type() != "type_arguments" && c.Type() != "type_parameters" {
				for i := 0; i < int(c.NamedChildCount()); i++ {
					if gc := c.NamedChild(i); gc != nil {
						queue = append(queue, gc)
					}
				}
			}
			continue
		}
		for _, tn := range typeNames(c, w.rules.heritage) {
			w.draft.AddRef(Ref{
				FromID: id,
				Name:   tn.Content(w.src),
				Kind:   w.rules.heritageKind(kind, tn.Content(w.src)),
				Line:   int(tn.StartPoint().Row) + 1,
				Byte:   int(tn.StartByte()),
			})
		}
		// Nested clauses (TypeScript extends_clause inside class_heritage)
		// are handled on their own.
		for i := 0; i < int(c.NamedChildCount()); i++ {
			if gc := c.NamedChild(i); gc != nil {
				if _, nested := w.rules.heritage[gc.Type()]; nested {
					queue = append(queue, gc)
				}
			}
		}
	}
}

// finish applies deferred type links once every type in the file is known.
func (w *walker) finish() {
	for _, tl := range w.typeLinks {
		var typeID string
		for _, id := range w.draft.Lookup(tl.typeName) {
			if s, ok := w.draft.Symbol(id); ok && s.Kind.IsType() {
				typeID = id
				break
			}
		}
		switch {
		case tl.kind == "":
			if typeID != "" {
				w.draft.SetParent(tl.symbolID, typeID)
			}
		case tl.target != "":
			// Edge from the type itself, e.g. impl Trait for Type.
			if typeID != "" {
				w.draft.AddRef(Ref{FromID: typeID, Name: tl.target, Kind: tl.kind, Line: tl.line})
			}
		default:
			// Edge from the symbol to the type, resolved or deferred by Link.
			w.draft.AddRef(Ref{FromID: tl.symbolID, Name: tl.typeName, Kind: tl.kind, Line: tl.line})
		}
	}
}

// ---------------------------------------------------------------------------
// Node helpers
// ---------------------------------------------------------------------------

func isIdentifierType(t string) bool {
	switch t {
	case "name", "constant", "word", "command_name":
		return true
	}
	return strings.HasSuffix(t, "identifier")
}

// memberTypes are expressions of the form object.member.
var memberTypes = map[string]bool{
	"member_expression":        true,
	"attribute":                true,
	"selector_expression":      true,
	"field_expression":         true,
	"scoped_identifier":        true,
	"qualified_name":           true,
	"qualified_identifier":     true,
	"navigation_expression":    true,
	"dot_index_expression":     true,
	"method_index_expression":  true,
	"member_access_expression": true,
	"field_access":             true,
	"scoped_type_identifier":   true,
	"scope_resolution":         true,
	"nested_identifier":        true,
	"qualified_type":           true,
}

// memberFields name the member part of a member expression, in preference
// order.
var memberFields = []string{"property", "attribute", "field", "name", "method", "suffix"}

// objectFields name the object part of a member expression.
var objectFields = []string{"object", "operand", "value", "path", "scope", "expression", "table", "target", "package", "argument", "namespace"}

// splitCallee returns the called name and its qualifier text.
func splitCallee(n *sitter.Node, src []byte) (name, qualifier string) {
	for depth := 0; n != nil && depth < 8; depth++ {
		t := n.Type()
		if isIdentifierType(t) {
			return n.Content(src), ""
		}
		if memberTypes[t] {
			var member *sitter.Node
			for _, f := range memberFields {
				if m := n.ChildByFieldName(f); m != nil {
					member = m
					break
				}
			}
			if member == nil {
				member = lastIdentifier(n)
			}
			if member == nil {
				return "", ""
			}
			if !isIdentifierType(member.Type()) {
				member = lastIdentifier(member)
				if member == nil {
					return "", ""
				}
			}
			for _, f := range objectFields {
				if o := n.ChildByFieldName(f); o != nil {
					return member.Content(src), collapse(o.Content(src))
				}
			}
			if first := n.NamedChild(0); first != nil && first.StartByte() < member.StartByte() {
				return member.Content(src), collapse(first.Content(src))
			}
			return member.Content(src), ""
		}
		// Wrappers such as generic_function, parenthesized_expression,
		// index_expression (Go generics) or type_arguments hold the callee
		// as their first named child.
		n = n.NamedChild(0)
	}
	return "", ""
}

// lastIdentifier returns the last identifier-like node under n in source
// order, including n itself.
func lastIdentifier(n *sitter.Node) *sitter.Node {
	var found *sitter.Node
	stack := []*sitter.Node{n}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if isIdentifierType(c.Type()) || c.Type() == "interpreted_string_literal" || c.Type() == "string" {
			if found == nil || c.StartByte() >= found.StartByte() {
				found = c
			}
			continue
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			if gc := c.NamedChild(i); gc != nil {
				stack = append(stack, gc)
			}
		}
	}
	return found
}

// typeNames collects the type names mentioned by a heritage clause. Member
// expressions contribute their last segment; type arguments and nested
// clauses are skipped.
func typeNames(n *sitter.Node, clauses map[string]graph.RelationshipKind) []*sitter.Node {
	var out []*sitter.Node
	stack := []*sitter.Node{}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if c := n.NamedChild(i); c != nil {
			stack = append(stack, c)
		}
	}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := c.Type()
		if _, nested := clauses[t]; nested {
			continue
		}
		switch {
		case t == "type_arguments" || t == "type_parameters" || t == "keyword_argument":
			continue
		case (t == "arguments" || t == "value_arguments") && len(out) > 0:
			continue
		case memberTypes[t]:
			if last := lastIdentifier(c); last != nil {
				out = append(out, last)
			}
			continue
		case isIdentifierType(t):
			out = append(out, c)
			continue
		}
		for i := int(c.NamedChildCount()) - 1; i >= 0; i-- {
			if gc := c.NamedChild(i); gc != nil {
				stack = append(stack, gc)
			}
		}
	}
	return out
}

// signature renders the declaration header: the node text up to its body,
// whitespace collapsed and capped.
func signature(n *sitter.Node, src []byte) string {
	text := n.Content(src)
	if body := n.ChildByFieldName("body"); body != nil && body.StartByte() > n.StartByte() {
		text = string(src[n.StartByte():body.StartByte()])
	} else if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimRight(collapse(text), " {:")
	if utf8.RuneCountInString(text) > maxSignatureLen {
		r := []rune(text)
		text = string(r[:maxSignatureLen]) + "…"
	}
	return text
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// docComment gathers the comment lines immediately above n, or above the
// wrapper that n sits in (decorators, export statements).
func (w *walker) docComment(n *sitter.Node) string {
	if w.rules.docstring != nil {
		if doc := w.rules.docstring(n, w.src); doc != "" {
			return doc
		}
	}
	anchor := n
	if p := n.Parent(); p != nil && w.rules.wrappers[p.Type()] {
		anchor = p
	}
	var lines []string
	nextRow := anchor.StartPoint().Row
	for prev := anchor.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Type() == "attribute_item" {
			nextRow = prev.StartPoint().Row
			continue
		}
		if !strings.Contains(prev.Type(), "comment") {
			break
		}
		if prev.EndPoint().Row+1 < nextRow {
			break
		}
		lines = append([]string{cleanComment(prev.Content(w.src))}, lines...)
		nextRow = prev.StartPoint().Row
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func cleanComment(c string) string {
	c = strings.TrimSpace(c)
	c = strings.TrimPrefix(c, "/**")
	c = strings.TrimPrefix(c, "/*")
	c = strings.TrimSuffix(c, "*/")
	var out []string
	for _, line := range strings.Split(c, "\n") {
		line = strings.TrimSpace(line)
		for _, p := range []string{"///", "//!", "//", "--", "#", "*"} {
			if strings.HasPrefix(line, p) {
				line = strings.TrimSpace(strings.TrimPrefix(line, p))
				break
			}
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
