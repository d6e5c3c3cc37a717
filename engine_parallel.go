package julie

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/anortham/julie-sub010/internal/extract"
	"github.com/anortham/julie-sub010/internal/store"
)

// job is one changed file waiting for extraction.
type job struct {
	path    string
	lang    string
	content []byte
	hash    string
}

// extracted is a worker's output for one job.
type extracted struct {
	path string
	set  store.FileSet
	err  error
}

// index runs the three-phase pipeline:
//
//	Phase A (serial):   detect language, read, hash, skip unchanged files.
//	Phase B (parallel): extract via an errgroup worker pool.
//	Phase C (serial):   the calling goroutine commits file-sets of batchSize.
//
// Languages in force are re-extracted even when their hash is unchanged.
// The returned report is never nil.
func (e *Engine) index(ctx context.Context, paths []string, force map[string]bool) (*IndexReport, error) {
	report := &IndexReport{}

	// ---- Phase A: Serial file preparation ----
	var jobs []job
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		j, skip, err := e.prepareFile(ctx, path, force)
		if err != nil {
			report.fail(path, err)
			e.logger.Warn("prepare file", "path", path, "err", err)
			continue
		}
		if skip {
			continue
		}
		if j == nil {
			report.Skipped++
			continue
		}
		jobs = append(jobs, *j)
	}
	if len(jobs) == 0 {
		return report, nil
	}

	// ---- Phase B: Parallel extraction ----
	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if !e.useParallel {
		workers = 1
	}
	workers = max(1, min(workers, len(jobs)))

	g, gctx := errgroup.WithContext(ctx)
	jobCh := make(chan job)
	resultCh := make(chan extracted)

	g.Go(func() error {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			for j := range jobCh {
				res := e.extractFile(gctx, j)
				select {
				case resultCh <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Single writer ----
	batch := store.NewBatch()
	for res := range resultCh {
		if ctx.Err() != nil {
			continue // discard uncommitted work
		}
		if res.err != nil {
			report.fail(res.path, res.err)
			e.logger.Warn("extract file", "path", res.path, "err", res.err)
			continue
		}
		batch.Add(res.set)
		if batch.Len() >= e.batchSize {
			e.commit(ctx, batch, report)
		}
	}
	if ctx.Err() == nil {
		e.commit(ctx, batch, report)
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	e.logger.Debug("indexed files",
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"workers", workers)
	return report, nil
}

// prepareFile does Phase A work for a single path. skip means the file is
// not ours to index; a nil job with skip false means the content is
// unchanged.
func (e *Engine) prepareFile(ctx context.Context, path string, force map[string]bool) (*job, bool, error) {
	lang, ok := extract.LanguageForFile(path)
	if !ok || !e.accepts(lang) {
		return nil, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	if !force[lang] {
		existing, err := e.store.FileHash(ctx, path)
		switch {
		case err == nil && existing == hash:
			return nil, false, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, false, fmt.Errorf("lookup file: %w", err)
		}
	}
	return &job{path: path, lang: lang, content: content, hash: hash}, false, nil
}

// extractFile runs the language's extractor over one job and packages the
// result as a file-set.
func (e *Engine) extractFile(ctx context.Context, j job) extracted {
	ex, err := e.registry.ForLanguage(j.lang)
	if err != nil {
		return extracted{path: j.path, err: err}
	}
	res, err := ex.Extract(ctx, extract.Source{Path: j.path, Language: j.lang, Content: j.content})
	if err != nil {
		return extracted{path: j.path, err: fmt.Errorf("extract: %w", err)}
	}
	return extracted{
		path: j.path,
		set: store.FileSet{
			File: store.File{
				Path:     j.path,
				Content:  string(j.content),
				Hash:     j.hash,
				Language: j.lang,
				Size:     int64(len(j.content)),
			},
			Symbols:       res.Symbols,
			Relationships: res.Relationships,
			Pending:       res.Pending,
		},
	}
}

// commit writes the buffered file-sets in one transaction. If that fails,
// each file is retried on its own so one bad file cannot sink the others.
func (e *Engine) commit(ctx context.Context, batch *store.Batch, report *IndexReport) {
	if batch.Len() == 0 {
		return
	}
	sets, err := e.store.CommitBatch(ctx, batch)
	if err == nil {
		for i := range sets {
			report.committed(&sets[i])
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	e.logger.Warn("file-set commit failed, retrying per file", "files", len(sets), "err", err)
	for i := range sets {
		if ctx.Err() != nil {
			return
		}
		if err := e.store.ReplaceFile(ctx, sets[i]); err != nil {
			report.fail(sets[i].File.Path, fmt.Errorf("commit: %w", err))
			e.logger.Warn("commit file", "path", sets[i].File.Path, "err", err)
			continue
		}
		report.committed(&sets[i])
	}
}
