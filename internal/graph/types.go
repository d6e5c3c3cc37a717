// Package graph defines the symbol graph vocabulary shared by extraction,
// storage and resolution: symbols, resolved relationships and pending
// relationships whose target is still only a name.
package graph

import "time"

// SymbolKind classifies a Symbol.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindConstructor SymbolKind = "constructor"
	KindDestructor  SymbolKind = "destructor"
	KindClass       SymbolKind = "class"
	KindStruct      SymbolKind = "struct"
	KindInterface   SymbolKind = "interface"
	KindTrait       SymbolKind = "trait"
	KindEnum        SymbolKind = "enum"
	KindEnumMember  SymbolKind = "enum_member"
	KindUnion       SymbolKind = "union"
	KindType        SymbolKind = "type"
	KindModule      SymbolKind = "module"
	KindNamespace   SymbolKind = "namespace"
	KindVariable    SymbolKind = "variable"
	KindConstant    SymbolKind = "constant"
	KindField       SymbolKind = "field"
	KindProperty    SymbolKind = "property"
	KindImport      SymbolKind = "import"
	KindExport      SymbolKind = "export"
	KindEvent       SymbolKind = "event"
	KindDelegate    SymbolKind = "delegate"
	KindOperator    SymbolKind = "operator"
)

// Callable reports whether a call site can target a symbol of this kind.
// Classes and structs count because constructor calls are spelled with the
// type name in most languages.
func (k SymbolKind) Callable() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor, KindClass, KindStruct, KindDelegate:
		return true
	}
	return false
}

// IsType reports whether the kind names a type that can be extended or
// implemented.
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindStruct, KindInterface, KindTrait, KindType, KindEnum, KindUnion:
		return true
	}
	return false
}

// Visibility is the declared accessibility of a symbol.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityInternal  Visibility = "internal"
	VisibilityPackage   Visibility = "package"
)

// RelationshipKind classifies an edge between two symbols.
type RelationshipKind string

const (
	RelCalls        RelationshipKind = "calls"
	RelExtends      RelationshipKind = "extends"
	RelImplements   RelationshipKind = "implements"
	RelUses         RelationshipKind = "uses"
	RelReturns      RelationshipKind = "returns"
	RelParameter    RelationshipKind = "parameter"
	RelImports      RelationshipKind = "imports"
	RelInstantiates RelationshipKind = "instantiates"
	RelReferences   RelationshipKind = "references"
	RelDefines      RelationshipKind = "defines"
	RelOverrides    RelationshipKind = "overrides"
	RelContains     RelationshipKind = "contains"
)

// Symbol is a named, positioned code entity extracted from exactly one file.
// Lines are 1-based, columns 0-based.
type Symbol struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Kind        SymbolKind     `json:"kind"`
	Language    string         `json:"language"`
	FilePath    string         `json:"file_path"`
	StartLine   int            `json:"start_line"`
	StartColumn int            `json:"start_column"`
	EndLine     int            `json:"end_line"`
	EndColumn   int            `json:"end_column"`
	StartByte   int            `json:"start_byte"`
	EndByte     int            `json:"end_byte"`
	Signature   string         `json:"signature,omitempty"`
	Visibility  Visibility     `json:"visibility,omitempty"`
	ParentID    string         `json:"parent_id,omitempty"` // weak; may point at a symbol that no longer exists
	DocComment  string         `json:"doc_comment,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Relationship is a resolved directed edge between two existing symbols.
type Relationship struct {
	ID           string           `json:"id"`
	FromSymbolID string           `json:"from_symbol_id"`
	ToSymbolID   string           `json:"to_symbol_id"`
	Kind         RelationshipKind `json:"kind"`
	FilePath     string           `json:"file_path"`
	LineNumber   int              `json:"line_number"`
	Confidence   float64          `json:"confidence"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

// PendingRelationship is an edge whose target is known only by name.
type PendingRelationship struct {
	ID           int64            `json:"id"` // assigned by the store
	FromSymbolID string           `json:"from_symbol_id"`
	CalleeName   string           `json:"callee_name"`
	Kind         RelationshipKind `json:"kind"`
	FilePath     string           `json:"file_path"`
	LineNumber   int              `json:"line_number"`
	Confidence   float64          `json:"confidence"`
	Attempts     int              `json:"attempts"`
	CreatedAt    time.Time        `json:"created_at"`
}
