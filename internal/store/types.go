package store

import "time"

// File is a stored source file. Content backs the files_fts mirror.
type File struct {
	Path      string
	Content   string
	Hash      string
	Language  string
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scan statuses.
const (
	ScanRunning   = "running"
	ScanCompleted = "completed"
	ScanCancelled = "cancelled"
	ScanFailed    = "failed"
)

// ScanRun is one row of the scan ledger.
type ScanRun struct {
	ID           string
	Root         string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	SymbolsTotal int
}

// Stats summarises the store contents.
type Stats struct {
	Files         int            `json:"files"`
	Symbols       int            `json:"symbols"`
	Relationships int            `json:"relationships"`
	Pending       int            `json:"pending"`
	Languages     map[string]int `json:"languages"`
}

// MirrorCounts compares row counts of each table with its FTS mirror.
type MirrorCounts struct {
	Symbols    int `json:"symbols"`
	SymbolsFTS int `json:"symbols_fts"`
	Files      int `json:"files"`
	FilesFTS   int `json:"files_fts"`
}

// InSync reports whether both mirrors match their source tables.
func (m MirrorCounts) InSync() bool {
	return m.Symbols == m.SymbolsFTS && m.Files == m.FilesFTS
}

// FileHit is a full-text match against file contents.
type FileHit struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Snippet  string `json:"snippet"`
}

// ImpactedSymbol is a symbol reached while walking incoming edges.
type ImpactedSymbol struct {
	SymbolID string `json:"symbol_id"`
	Depth    int    `json:"depth"`
}
