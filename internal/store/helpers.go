package store

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// maxInParams caps the placeholders in one IN (...) list.
const maxInParams = 500

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// chunks splits items into slices of at most maxInParams.
func chunks[T any](items []T) [][]T {
	var out [][]T
	for len(items) > maxInParams {
		out = append(out, items[:maxInParams])
		items = items[maxInParams:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// nullString stores "" as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// marshalMetadata converts a metadata map to JSON text, or NULL when empty.
func marshalMetadata(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(b)
}

// unmarshalMetadata converts stored JSON text back to a map.
func unmarshalMetadata(s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal([]byte(s.String), &m)
	return m
}
