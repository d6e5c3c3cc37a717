package store

import "sync"

// Batch buffers extracted file-sets in memory until the writer commits them.
// Workers may Add concurrently; the writer goroutine drains it.
type Batch struct {
	mu   sync.Mutex
	sets []FileSet
	rows int
}

// NewBatch returns an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends a file-set. A later set for the same path replaces the
// earlier one so a file is never written twice in one commit.
func (b *Batch) Add(set FileSet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.sets {
		if b.sets[i].File.Path == set.File.Path {
			b.rows -= b.sets[i].rows()
			b.sets[i] = set
			b.rows += set.rows()
			return
		}
	}
	b.sets = append(b.sets, set)
	b.rows += set.rows()
}

// Len returns the number of buffered files.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sets)
}

// Rows returns the number of buffered rows across all tables.
func (b *Batch) Rows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows
}

// Drain returns the buffered file-sets and empties the batch.
func (b *Batch) Drain() []FileSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	sets := b.sets
	b.sets = nil
	b.rows = 0
	return sets
}
