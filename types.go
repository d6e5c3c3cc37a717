package julie

import (
	"fmt"
	"time"

	"github.com/anortham/julie-sub010/internal/graph"
	"github.com/anortham/julie-sub010/internal/resolve"
	"github.com/anortham/julie-sub010/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// API. External consumers use these names; no conversion is needed.

type Store = store.Store
type File = store.File
type FileHit = store.FileHit
type StoreStats = store.Stats
type MirrorCounts = store.MirrorCounts
type ScanRun = store.ScanRun
type Symbol = graph.Symbol
type Relationship = graph.Relationship
type PendingRelationship = graph.PendingRelationship
type ResolveStats = resolve.Stats

// FileError records a file that could not be indexed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// IndexReport summarises one indexing call.
type IndexReport struct {
	Indexed       int           `json:"indexed"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Symbols       int           `json:"symbols"`
	Relationships int           `json:"relationships"`
	Pending       int           `json:"pending"`
	Errors        []FileError   `json:"-"`
	Resolution    *ResolveStats `json:"resolution,omitempty"`
}

func (r *IndexReport) fail(path string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, FileError{Path: path, Err: err})
}

func (r *IndexReport) committed(set *store.FileSet) {
	r.Indexed++
	r.Symbols += len(set.Symbols)
	r.Relationships += len(set.Relationships)
	r.Pending += len(set.Pending)
}

// Err summarises per-file failures, or returns nil when there were none.
func (r *IndexReport) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("indexing had %d error(s): %w", len(r.Errors), r.Errors[0])
}

// ScanReport summarises a ScanDirectory call.
type ScanReport struct {
	*IndexReport
	ScanID     string        `json:"scan_id"`
	Root       string        `json:"root"`
	Discovered int           `json:"discovered"`
	Removed    int           `json:"removed"`
	Pruned     int           `json:"pruned"`
	Duration   time.Duration `json:"duration"`
}

// UpdateResult describes an UpdateFile call.
type UpdateResult struct {
	Path       string        `json:"path"`
	Language   string        `json:"language"`
	Hash       string        `json:"hash"`
	Skipped    bool          `json:"skipped"`
	Symbols    int           `json:"symbols"`
	Resolution *ResolveStats `json:"resolution,omitempty"`
}
