package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/anortham/julie-sub010/internal/graph"
)

// langRules is the per-language table that drives the shared walker.
type langRules struct {
	defs    map[string]defRule
	calls   map[string]callRule
	imports map[string]bool
	// heritage maps clause node types to the edge kind they produce.
	heritage map[string]graph.RelationshipKind
	// wrappers are parents whose leading comments document the child
	// (decorators, export statements, grouped declarations).
	wrappers     map[string]bool
	constructors map[string]bool

	visibility     func(n *sitter.Node, name string, src []byte) graph.Visibility
	importBindings func(n *sitter.Node, src []byte) []*sitter.Node
	docstring      func(n *sitter.Node, src []byte) string
	heritageFor    func(kind graph.RelationshipKind, name string) graph.RelationshipKind
	onNode         func(w *walker, n *sitter.Node, scope string)
}

func (r *langRules) heritageKind(kind graph.RelationshipKind, name string) graph.RelationshipKind {
	if r.heritageFor != nil {
		return r.heritageFor(kind, name)
	}
	return kind
}

// defRule describes a definition node.
type defRule struct {
	kind graph.SymbolKind
	// kindOf overrides kind. Returning false suppresses the symbol.
	kindOf func(n *sitter.Node, src []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool)
	// member replaces the kind when the definition sits directly in a type.
	member graph.SymbolKind
	// fields name the child holding the name, default "name".
	fields []string
	// anyChild falls back to the first identifier-like named child, for
	// grammars without field names.
	anyChild bool
	// dotted accepts a.b style names and keeps the last segment.
	dotted   bool
	heritage bool
	hook     func(w *walker, n *sitter.Node, id string)
}

func (r defRule) nameNode(n *sitter.Node) *sitter.Node {
	fields := r.fields
	if len(fields) == 0 {
		fields = []string{"name"}
	}
	for _, f := range fields {
		if c := n.ChildByFieldName(f); c != nil {
			if id := identifierNode(c, r.dotted); id != nil {
				return id
			}
		}
	}
	if r.anyChild {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c != nil && isIdentifierType(c.Type()) {
				return c
			}
		}
	}
	return nil
}

// identifierNode descends through declarator and name fields until it
// reaches an identifier.
func identifierNode(n *sitter.Node, dotted bool) *sitter.Node {
	for depth := 0; n != nil && depth < 8; depth++ {
		if isIdentifierType(n.Type()) {
			return n
		}
		if dotted && memberTypes[n.Type()] {
			return lastIdentifier(n)
		}
		next := n.ChildByFieldName("declarator")
		if next == nil {
			next = n.ChildByFieldName("name")
		}
		n = next
	}
	return nil
}

// callRule describes a reference-producing expression.
type callRule struct {
	kind graph.RelationshipKind
	// fields name the callee expression; empty means the first named child.
	fields []string
	// nameField and qualifierField are used by grammars that split the
	// callee into separate children (Java method_invocation, Ruby call).
	nameField      string
	qualifierField string
	// targetTypes, when set, restricts the node types the callee may have.
	targetTypes map[string]bool
}

func (r callRule) callee(n *sitter.Node, src []byte) (name, qualifier string) {
	if r.nameField != "" {
		nn := n.ChildByFieldName(r.nameField)
		if nn == nil {
			return "", ""
		}
		if r.qualifierField != "" {
			if q := n.ChildByFieldName(r.qualifierField); q != nil {
				qualifier = collapse(q.Content(src))
			}
		}
		return nn.Content(src), qualifier
	}
	var target *sitter.Node
	for _, f := range r.fields {
		if c := n.ChildByFieldName(f); c != nil {
			target = c
			break
		}
	}
	if target == nil && len(r.fields) == 0 {
		target = n.NamedChild(0)
	}
	if target == nil {
		return "", ""
	}
	if r.targetTypes != nil && !r.targetTypes[target.Type()] {
		return "", ""
	}
	return splitCallee(target, src)
}

var ruleTable = map[string]*langRules{}

func init() {
	ruleTable["go"] = goRules()
	ruleTable["python"] = pythonRules()
	ruleTable["javascript"] = jsRules(false)
	ruleTable["typescript"] = jsRules(true)
	ruleTable["tsx"] = jsRules(true)
	ruleTable["java"] = javaRules()
	ruleTable["rust"] = rustRules()
	ruleTable["c"] = cRules(false)
	ruleTable["cpp"] = cRules(true)
	ruleTable["csharp"] = csharpRules()
	ruleTable["ruby"] = rubyRules()
	ruleTable["php"] = phpRules()
	ruleTable["kotlin"] = kotlinRules()
	ruleTable["scala"] = scalaRules()
	ruleTable["swift"] = swiftRules()
	ruleTable["bash"] = bashRules()
	ruleTable["lua"] = luaRules()
}

func rulesFor(lang string) (*langRules, bool) {
	r, ok := ruleTable[lang]
	return r, ok
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func topLevelOnly(kind graph.SymbolKind) func(*sitter.Node, []byte, graph.SymbolKind) (graph.SymbolKind, bool) {
	return func(_ *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
		return kind, enclosing == ""
	}
}

func insideType(kind graph.SymbolKind) func(*sitter.Node, []byte, graph.SymbolKind) (graph.SymbolKind, bool) {
	return func(_ *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
		return kind, enclosing.IsType()
	}
}

func boolSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

// firstOfType returns the first descendant of n (n included) with node
// type t, in source order.
func firstOfType(n *sitter.Node, t string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == t {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstOfType(n.NamedChild(i), t); found != nil {
			return found
		}
	}
	return nil
}

func hasChildToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

func isUpperName(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func publicOnly(*sitter.Node, string, []byte) graph.Visibility {
	return graph.VisibilityPublic
}

var modifierNodes = boolSet("modifiers", "modifier", "accessibility_modifier", "visibility_modifier",
	"member_modifier", "visibility")

// modifierVisibility reads access keywords from a node's modifier
// children, falling back to def when none are present.
func modifierVisibility(def graph.Visibility) func(*sitter.Node, string, []byte) graph.Visibility {
	return func(n *sitter.Node, name string, src []byte) graph.Visibility {
		if strings.HasPrefix(name, "#") {
			return graph.VisibilityPrivate
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			text := c.Type()
			if modifierNodes[text] {
				text = c.Content(src)
			}
			for _, word := range strings.Fields(text) {
				switch word {
				case "private", "fileprivate":
					return graph.VisibilityPrivate
				case "protected":
					return graph.VisibilityProtected
				case "internal":
					return graph.VisibilityInternal
				case "public", "open":
					return graph.VisibilityPublic
				}
			}
		}
		return def
	}
}

// ---------------------------------------------------------------------------
// Go
// ---------------------------------------------------------------------------

func goRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"function_declaration": {kind: graph.KindFunction},
			"method_declaration":   {kind: graph.KindMethod, hook: goReceiver},
			"type_spec":            {kindOf: goTypeKind},
			"type_alias":           {kind: graph.KindType},
			"field_declaration": {kindOf: func(_ *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
				return graph.KindField, enclosing == graph.KindStruct
			}},
			"method_elem": {kind: graph.KindMethod},
			"method_spec": {kind: graph.KindMethod},
			"const_spec":  {kindOf: topLevelOnly(graph.KindConstant)},
			"var_spec":    {kindOf: topLevelOnly(graph.KindVariable)},
		},
		calls: map[string]callRule{
			"call_expression": {fields: []string{"function"}},
			"composite_literal": {
				kind:        graph.RelInstantiates,
				fields:      []string{"type"},
				targetTypes: boolSet("type_identifier", "qualified_type", "generic_type"),
			},
		},
		imports:  boolSet("import_spec"),
		wrappers: boolSet("type_declaration", "const_declaration", "var_declaration"),
		visibility: func(_ *sitter.Node, name string, _ []byte) graph.Visibility {
			r, _ := utf8.DecodeRuneInString(name)
			if unicode.IsUpper(r) {
				return graph.VisibilityPublic
			}
			return graph.VisibilityPrivate
		},
		importBindings: func(n *sitter.Node, _ []byte) []*sitter.Node {
			if alias := n.ChildByFieldName("name"); alias != nil {
				if alias.Type() != "package_identifier" {
					return nil
				}
				return []*sitter.Node{alias}
			}
			if path := n.ChildByFieldName("path"); path != nil {
				return []*sitter.Node{path}
			}
			return nil
		},
	}
}

func goTypeKind(n *sitter.Node, _ []byte, _ graph.SymbolKind) (graph.SymbolKind, bool) {
	t := n.ChildByFieldName("type")
	if t == nil {
		return graph.KindType, true
	}
	switch t.Type() {
	case "struct_type":
		return graph.KindStruct, true
	case "interface_type":
		return graph.KindInterface, true
	}
	return graph.KindType, true
}

// goReceiver defers parenting a method under its receiver type.
func goReceiver(w *walker, n *sitter.Node, id string) {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return
	}
	tn := firstOfType(recv, "type_identifier")
	if tn == nil {
		return
	}
	w.typeLinks = append(w.typeLinks, typeLink{symbolID: id, typeName: tn.Content(w.src)})
}

// ---------------------------------------------------------------------------
// Python
// ---------------------------------------------------------------------------

func pythonRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"function_definition": {kind: graph.KindFunction, member: graph.KindMethod},
			"class_definition":    {kind: graph.KindClass, heritage: true},
			"assignment": {fields: []string{"left"}, kindOf: func(n *sitter.Node, src []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
				left := n.ChildByFieldName("left")
				if left == nil || left.Type() != "identifier" {
					return "", false
				}
				constant := isUpperName(left.Content(src))
				switch {
				case enclosing == "" && constant:
					return graph.KindConstant, true
				case enclosing == "":
					return graph.KindVariable, true
				case enclosing.IsType() && constant:
					return graph.KindConstant, true
				case enclosing.IsType():
					return graph.KindField, true
				}
				return "", false
			}},
		},
		calls: map[string]callRule{
			"call": {fields: []string{"function"}},
		},
		imports:      boolSet("import_statement", "import_from_statement"),
		heritage:     map[string]graph.RelationshipKind{"argument_list": graph.RelExtends},
		wrappers:     boolSet("decorated_definition"),
		constructors: boolSet("__init__"),
		visibility: func(_ *sitter.Node, name string, _ []byte) graph.Visibility {
			if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
				return graph.VisibilityPublic
			}
			if strings.HasPrefix(name, "_") {
				return graph.VisibilityPrivate
			}
			return graph.VisibilityPublic
		},
		importBindings: pythonImportBindings,
		docstring:      pythonDocstring,
	}
}

func pythonImportBindings(n *sitter.Node, _ []byte) []*sitter.Node {
	module := n.ChildByFieldName("module_name")
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		if module != nil && c.StartByte() == module.StartByte() && c.EndByte() == module.EndByte() {
			continue
		}
		switch c.Type() {
		case "aliased_import":
			if a := c.ChildByFieldName("alias"); a != nil {
				out = append(out, a)
			}
		case "dotted_name":
			// import a.b binds a; from m import a binds a.
			if n.Type() == "import_statement" {
				if first := c.NamedChild(0); first != nil {
					out = append(out, first)
				}
			} else if last := lastIdentifier(c); last != nil {
				out = append(out, last)
			}
		}
	}
	return out
}

func pythonDocstring(n *sitter.Node, src []byte) string {
	if n.Type() != "function_definition" && n.Type() != "class_definition" {
		return ""
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	s := first.NamedChild(0)
	if s == nil || s.Type() != "string" {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s.Content(src), `"'`))
}

// ---------------------------------------------------------------------------
// JavaScript / TypeScript
// ---------------------------------------------------------------------------

func jsRules(typed bool) *langRules {
	r := &langRules{
		defs: map[string]defRule{
			"function_declaration":           {kind: graph.KindFunction},
			"generator_function_declaration": {kind: graph.KindFunction},
			"class_declaration":              {kind: graph.KindClass, heritage: true},
			"method_definition":              {kind: graph.KindMethod},
			"variable_declarator":            {kindOf: jsDeclaratorKind},
			"field_definition":               {fields: []string{"property", "name"}, kindOf: jsFieldKind},
		},
		calls: map[string]callRule{
			"call_expression": {fields: []string{"function"}},
			"new_expression":  {kind: graph.RelInstantiates, fields: []string{"constructor"}},
		},
		imports:        boolSet("import_statement"),
		heritage:       map[string]graph.RelationshipKind{"class_heritage": graph.RelExtends},
		wrappers:       boolSet("export_statement"),
		constructors:   boolSet("constructor"),
		visibility:     modifierVisibility(graph.VisibilityPublic),
		importBindings: jsImportBindings,
	}
	if typed {
		r.defs["abstract_class_declaration"] = defRule{kind: graph.KindClass, heritage: true}
		r.defs["interface_declaration"] = defRule{kind: graph.KindInterface, heritage: true}
		r.defs["type_alias_declaration"] = defRule{kind: graph.KindType}
		r.defs["enum_declaration"] = defRule{kind: graph.KindEnum}
		r.defs["internal_module"] = defRule{kind: graph.KindNamespace}
		r.defs["module"] = defRule{kind: graph.KindModule}
		r.defs["method_signature"] = defRule{kind: graph.KindMethod}
		r.defs["abstract_method_signature"] = defRule{kind: graph.KindMethod}
		r.defs["property_signature"] = defRule{kind: graph.KindProperty}
		r.defs["public_field_definition"] = defRule{fields: []string{"name"}, kindOf: jsFieldKind}
		r.heritage["extends_clause"] = graph.RelExtends
		r.heritage["implements_clause"] = graph.RelImplements
		r.heritage["extends_type_clause"] = graph.RelExtends
	}
	return r
}

func isJSFunctionValue(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

func jsDeclaratorKind(n *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
	if isJSFunctionValue(n.ChildByFieldName("value")) {
		return graph.KindFunction, true
	}
	if enclosing != "" && !enclosing.IsType() {
		return "", false
	}
	if p := n.Parent(); p != nil && p.Type() == "lexical_declaration" && hasChildToken(p, "const") {
		return graph.KindConstant, true
	}
	return graph.KindVariable, true
}

func jsFieldKind(n *sitter.Node, _ []byte, _ graph.SymbolKind) (graph.SymbolKind, bool) {
	if isJSFunctionValue(n.ChildByFieldName("value")) {
		return graph.KindMethod, true
	}
	return graph.KindProperty, true
}

func jsImportBindings(n *sitter.Node, _ []byte) []*sitter.Node {
	clause := firstOfType(n, "import_clause")
	if clause == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "identifier":
			out = append(out, c)
		case "namespace_import":
			if id := firstOfType(c, "identifier"); id != nil {
				out = append(out, id)
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec == nil || spec.Type() != "import_specifier" {
					continue
				}
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					out = append(out, alias)
				} else if name := spec.ChildByFieldName("name"); name != nil {
					out = append(out, name)
				}
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Java
// ---------------------------------------------------------------------------

func javaRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"class_declaration":           {kind: graph.KindClass, heritage: true},
			"interface_declaration":       {kind: graph.KindInterface, heritage: true},
			"enum_declaration":            {kind: graph.KindEnum, heritage: true},
			"record_declaration":          {kind: graph.KindClass, heritage: true},
			"annotation_type_declaration": {kind: graph.KindInterface},
			"method_declaration":          {kind: graph.KindMethod},
			"constructor_declaration":     {kind: graph.KindConstructor},
			"field_declaration":           {fields: []string{"declarator"}, kindOf: insideType(graph.KindField)},
			"enum_constant":               {kind: graph.KindEnumMember},
		},
		calls: map[string]callRule{
			"method_invocation":          {nameField: "name", qualifierField: "object"},
			"object_creation_expression": {kind: graph.RelInstantiates, fields: []string{"type"}},
		},
		imports: boolSet("import_declaration"),
		heritage: map[string]graph.RelationshipKind{
			"superclass":         graph.RelExtends,
			"super_interfaces":   graph.RelImplements,
			"extends_interfaces": graph.RelExtends,
		},
		visibility: modifierVisibility(graph.VisibilityPackage),
	}
}

// ---------------------------------------------------------------------------
// Rust
// ---------------------------------------------------------------------------

func rustRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"function_item":           {kindOf: rustFnKind, hook: rustImplMember},
			"function_signature_item": {kind: graph.KindMethod},
			"struct_item":             {kind: graph.KindStruct},
			"enum_item":               {kind: graph.KindEnum},
			"union_item":              {kind: graph.KindUnion},
			"trait_item":              {kind: graph.KindTrait},
			"type_item":               {kind: graph.KindType},
			"mod_item":                {kind: graph.KindModule},
			"const_item":              {kind: graph.KindConstant},
			"static_item":             {kind: graph.KindVariable},
			"macro_definition":        {kind: graph.KindFunction},
			"field_declaration":       {kindOf: insideType(graph.KindField)},
			"enum_variant":            {kind: graph.KindEnumMember},
		},
		calls: map[string]callRule{
			"call_expression":   {fields: []string{"function"}},
			"macro_invocation":  {fields: []string{"macro"}},
			"struct_expression": {kind: graph.RelInstantiates, fields: []string{"name"}},
		},
		imports:      boolSet("use_declaration"),
		constructors: boolSet("new"),
		visibility: func(n *sitter.Node, _ string, src []byte) graph.Visibility {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				c := n.NamedChild(i)
				if c == nil || c.Type() != "visibility_modifier" {
					continue
				}
				if strings.Contains(c.Content(src), "(") {
					return graph.VisibilityInternal
				}
				return graph.VisibilityPublic
			}
			return graph.VisibilityPrivate
		},
		importBindings: func(n *sitter.Node, _ []byte) []*sitter.Node {
			var out []*sitter.Node
			rustUseNames(n.ChildByFieldName("argument"), &out)
			return out
		},
		onNode: rustImplTrait,
	}
}

func rustUseNames(n *sitter.Node, out *[]*sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		*out = append(*out, n)
	case "scoped_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			*out = append(*out, name)
		}
	case "use_as_clause":
		if alias := n.ChildByFieldName("alias"); alias != nil {
			*out = append(*out, alias)
		}
	case "scoped_use_list":
		rustUseNames(n.ChildByFieldName("list"), out)
	case "use_list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			rustUseNames(n.NamedChild(i), out)
		}
	}
}

// rustImpl returns the impl block a function item is declared in.
func rustImpl(n *sitter.Node) *sitter.Node {
	p := n.Parent()
	if p == nil || p.Type() != "declaration_list" {
		return nil
	}
	if g := p.Parent(); g != nil && g.Type() == "impl_item" {
		return g
	}
	return nil
}

func rustFnKind(n *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
	if rustImpl(n) != nil || enclosing == graph.KindTrait {
		return graph.KindMethod, true
	}
	return graph.KindFunction, true
}

func rustImplMember(w *walker, n *sitter.Node, id string) {
	impl := rustImpl(n)
	if impl == nil {
		return
	}
	if tn := firstOfType(impl.ChildByFieldName("type"), "type_identifier"); tn != nil {
		w.typeLinks = append(w.typeLinks, typeLink{symbolID: id, typeName: tn.Content(w.src)})
	}
}

func rustImplTrait(w *walker, n *sitter.Node, _ string) {
	if n.Type() != "impl_item" {
		return
	}
	trait := n.ChildByFieldName("trait")
	if trait == nil {
		return
	}
	tn := firstOfType(n.ChildByFieldName("type"), "type_identifier")
	name := lastIdentifier(trait)
	if tn == nil || name == nil {
		return
	}
	w.typeLinks = append(w.typeLinks, typeLink{
		typeName: tn.Content(w.src),
		kind:     graph.RelImplements,
		target:   name.Content(w.src),
		line:     int(n.StartPoint().Row) + 1,
	})
}

// ---------------------------------------------------------------------------
// C / C++
// ---------------------------------------------------------------------------

func withBody(kind graph.SymbolKind) func(*sitter.Node, []byte, graph.SymbolKind) (graph.SymbolKind, bool) {
	return func(n *sitter.Node, _ []byte, _ graph.SymbolKind) (graph.SymbolKind, bool) {
		return kind, n.ChildByFieldName("body") != nil
	}
}

func cRules(cpp bool) *langRules {
	r := &langRules{
		defs: map[string]defRule{
			"function_definition":  {kind: graph.KindFunction, member: graph.KindMethod, fields: []string{"declarator"}},
			"struct_specifier":     {kindOf: withBody(graph.KindStruct), heritage: cpp},
			"union_specifier":      {kindOf: withBody(graph.KindUnion)},
			"enum_specifier":       {kindOf: withBody(graph.KindEnum)},
			"type_definition":      {kind: graph.KindType, fields: []string{"declarator"}},
			"field_declaration":    {kindOf: insideType(graph.KindField), fields: []string{"declarator"}},
			"enumerator":           {kind: graph.KindEnumMember},
			"preproc_function_def": {kind: graph.KindFunction},
			"preproc_def":          {kind: graph.KindConstant},
		},
		calls: map[string]callRule{
			"call_expression": {fields: []string{"function"}},
		},
		visibility: func(n *sitter.Node, _ string, src []byte) graph.Visibility {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				c := n.NamedChild(i)
				if c != nil && c.Type() == "storage_class_specifier" && c.Content(src) == "static" {
					return graph.VisibilityPrivate
				}
			}
			return graph.VisibilityPublic
		},
	}
	if cpp {
		r.defs["class_specifier"] = defRule{kindOf: withBody(graph.KindClass), heritage: true}
		r.defs["namespace_definition"] = defRule{kind: graph.KindNamespace}
		r.calls["new_expression"] = callRule{kind: graph.RelInstantiates, fields: []string{"type"}}
		r.heritage = map[string]graph.RelationshipKind{"base_class_clause": graph.RelExtends}
		r.imports = boolSet("using_declaration")
	}
	return r
}

// ---------------------------------------------------------------------------
// C#
// ---------------------------------------------------------------------------

func csharpRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"class_declaration":                 {kind: graph.KindClass, heritage: true},
			"interface_declaration":             {kind: graph.KindInterface, heritage: true},
			"struct_declaration":                {kind: graph.KindStruct, heritage: true},
			"record_declaration":                {kind: graph.KindClass, heritage: true},
			"enum_declaration":                  {kind: graph.KindEnum},
			"enum_member_declaration":           {kind: graph.KindEnumMember},
			"namespace_declaration":             {kind: graph.KindNamespace},
			"file_scoped_namespace_declaration": {kind: graph.KindNamespace},
			"method_declaration":                {kind: graph.KindMethod},
			"constructor_declaration":           {kind: graph.KindConstructor},
			"destructor_declaration":            {kind: graph.KindDestructor},
			"property_declaration":              {kind: graph.KindProperty},
			"event_declaration":                 {kind: graph.KindEvent},
			"delegate_declaration":              {kind: graph.KindDelegate},
			"operator_declaration":              {kind: graph.KindOperator, fields: []string{"operator"}, anyChild: true},
			"variable_declarator":               {kindOf: insideType(graph.KindField)},
		},
		calls: map[string]callRule{
			"invocation_expression":      {fields: []string{"function"}},
			"object_creation_expression": {kind: graph.RelInstantiates, fields: []string{"type"}},
		},
		imports:  boolSet("using_directive"),
		heritage: map[string]graph.RelationshipKind{"base_list": graph.RelExtends},
		heritageFor: func(kind graph.RelationshipKind, name string) graph.RelationshipKind {
			// I-prefixed names are interfaces by convention.
			if len(name) > 1 && name[0] == 'I' && unicode.IsUpper(rune(name[1])) {
				return graph.RelImplements
			}
			return kind
		},
		visibility: func(n *sitter.Node, name string, src []byte) graph.Visibility {
			def := graph.VisibilityInternal
			if p := n.Parent(); p != nil && p.Type() == "declaration_list" &&
				p.Parent() != nil && !strings.Contains(p.Parent().Type(), "namespace") {
				def = graph.VisibilityPrivate
			}
			return modifierVisibility(def)(n, name, src)
		},
	}
}

// ---------------------------------------------------------------------------
// Ruby, PHP
// ---------------------------------------------------------------------------

func rubyRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"class":  {kind: graph.KindClass, heritage: true},
			"module": {kind: graph.KindModule},
			"method": {kindOf: func(_ *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
				if enclosing == graph.KindClass || enclosing == graph.KindModule {
					return graph.KindMethod, true
				}
				return graph.KindFunction, true
			}},
			"singleton_method": {kind: graph.KindMethod},
			"assignment": {fields: []string{"left"}, kindOf: func(n *sitter.Node, _ []byte, enclosing graph.SymbolKind) (graph.SymbolKind, bool) {
				left := n.ChildByFieldName("left")
				return graph.KindConstant, left != nil && left.Type() == "constant" && enclosing != graph.KindFunction && enclosing != graph.KindMethod
			}},
		},
		calls: map[string]callRule{
			"call": {nameField: "method", qualifierField: "receiver"},
		},
		heritage:     map[string]graph.RelationshipKind{"superclass": graph.RelExtends},
		constructors: boolSet("initialize"),
		visibility:   publicOnly,
	}
}

func phpRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"function_definition":   {kind: graph.KindFunction},
			"class_declaration":     {kind: graph.KindClass, heritage: true},
			"interface_declaration": {kind: graph.KindInterface, heritage: true},
			"trait_declaration":     {kind: graph.KindTrait},
			"enum_declaration":      {kind: graph.KindEnum, heritage: true},
			"namespace_definition":  {kind: graph.KindNamespace},
			"method_declaration":    {kind: graph.KindMethod},
			"const_element":         {kind: graph.KindConstant, anyChild: true},
		},
		calls: map[string]callRule{
			"function_call_expression":        {fields: []string{"function"}},
			"member_call_expression":          {nameField: "name", qualifierField: "object"},
			"nullsafe_member_call_expression": {nameField: "name", qualifierField: "object"},
			"scoped_call_expression":          {nameField: "name", qualifierField: "scope"},
			"object_creation_expression":      {kind: graph.RelInstantiates},
		},
		imports: boolSet("namespace_use_clause"),
		heritage: map[string]graph.RelationshipKind{
			"base_clause":            graph.RelExtends,
			"class_interface_clause": graph.RelImplements,
		},
		constructors: boolSet("__construct"),
		visibility:   modifierVisibility(graph.VisibilityPublic),
	}
}

// ---------------------------------------------------------------------------
// Kotlin, Scala, Swift
// ---------------------------------------------------------------------------

func kotlinRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"class_declaration": {anyChild: true, heritage: true, kindOf: func(n *sitter.Node, _ []byte, _ graph.SymbolKind) (graph.SymbolKind, bool) {
				if hasChildToken(n, "interface") {
					return graph.KindInterface, true
				}
				return graph.KindClass, true
			}},
			"object_declaration":   {kind: graph.KindClass, anyChild: true, heritage: true},
			"function_declaration": {kind: graph.KindFunction, member: graph.KindMethod, anyChild: true},
		},
		calls: map[string]callRule{
			"call_expression": {},
		},
		imports:    boolSet("import_header"),
		heritage:   map[string]graph.RelationshipKind{"delegation_specifier": graph.RelExtends},
		visibility: modifierVisibility(graph.VisibilityPublic),
	}
}

func scalaRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"class_definition":     {kind: graph.KindClass, heritage: true},
			"object_definition":    {kind: graph.KindClass, heritage: true},
			"trait_definition":     {kind: graph.KindTrait, heritage: true},
			"function_definition":  {kind: graph.KindFunction, member: graph.KindMethod},
			"function_declaration": {kind: graph.KindFunction, member: graph.KindMethod},
		},
		calls: map[string]callRule{
			"call_expression": {fields: []string{"function"}},
		},
		imports:    boolSet("import_declaration"),
		heritage:   map[string]graph.RelationshipKind{"extends_clause": graph.RelExtends},
		visibility: modifierVisibility(graph.VisibilityPublic),
	}
}

func swiftRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"class_declaration": {heritage: true, kindOf: func(n *sitter.Node, src []byte, _ graph.SymbolKind) (graph.SymbolKind, bool) {
				dk := n.ChildByFieldName("declaration_kind")
				if dk == nil {
					return graph.KindClass, true
				}
				switch dk.Content(src) {
				case "struct":
					return graph.KindStruct, true
				case "enum":
					return graph.KindEnum, true
				case "extension":
					return "", false
				}
				return graph.KindClass, true
			}},
			"protocol_declaration": {kind: graph.KindInterface, heritage: true},
			"function_declaration": {kind: graph.KindFunction, member: graph.KindMethod},
			"init_declaration":     {kind: graph.KindConstructor, anyChild: true},
		},
		calls: map[string]callRule{
			"call_expression": {},
		},
		imports:    boolSet("import_declaration"),
		heritage:   map[string]graph.RelationshipKind{"inheritance_specifier": graph.RelExtends},
		visibility: modifierVisibility(graph.VisibilityInternal),
	}
}

// ---------------------------------------------------------------------------
// Bash, Lua
// ---------------------------------------------------------------------------

func bashRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"function_definition": {kind: graph.KindFunction},
		},
		calls: map[string]callRule{
			"command": {fields: []string{"name"}},
		},
		visibility: publicOnly,
	}
}

func luaRules() *langRules {
	return &langRules{
		defs: map[string]defRule{
			"function_declaration": {dotted: true, kindOf: func(n *sitter.Node, _ []byte, _ graph.SymbolKind) (graph.SymbolKind, bool) {
				if name := n.ChildByFieldName("name"); name != nil && memberTypes[name.Type()] {
					return graph.KindMethod, true
				}
				return graph.KindFunction, true
			}},
		},
		calls: map[string]callRule{
			"function_call": {fields: []string{"name"}},
		},
		visibility: func(n *sitter.Node, _ string, _ []byte) graph.Visibility {
			if hasChildToken(n, "local") {
				return graph.VisibilityPrivate
			}
			return graph.VisibilityPublic
		},
	}
}
