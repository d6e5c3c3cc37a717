// Package extract turns one source file into graph values: the symbols it
// defines, the relationships that resolve inside the file, and pending
// relationships for names defined elsewhere.
package extract

import (
	"context"
	"errors"

	"github.com/anortham/julie-sub010/internal/graph"
)

// ErrUnsupportedLanguage is returned when no extractor is routed for a
// language tag.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Source is the input to an extractor.
type Source struct {
	Path     string
	Language string
	Content  []byte
}

// Result is everything extracted from one file. Relationships only ever
// target symbols in Symbols; everything else is in Pending.
type Result struct {
	Symbols       []graph.Symbol
	Relationships []graph.Relationship
	Pending       []graph.PendingRelationship
}

// Extractor is implemented by every language front-end. Implementations must
// be safe for concurrent use; each call gets its own Source.
type Extractor interface {
	Extract(ctx context.Context, src Source) (*Result, error)
}
