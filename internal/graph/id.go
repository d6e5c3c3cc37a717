package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// SymbolID derives the stable id of a symbol from its file, name and start
// position. Re-extracting unchanged content yields the same id.
func SymbolID(filePath, name string, startLine, startColumn int) string {
	return hashParts(filePath, name, strconv.Itoa(startLine), strconv.Itoa(startColumn))
}

// RelationshipID derives the id of an edge from its endpoints, kind and
// position, so re-inserting the same edge is a no-op.
func RelationshipID(fromID, toID string, kind RelationshipKind, filePath string, line int) string {
	return hashParts(fromID, toID, string(kind), filePath, strconv.Itoa(line))
}

func hashParts(parts ...string) string {
	h := xxh3.HashString128(strings.Join(parts, "\x00"))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
