package julie

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anortham/julie-sub010/internal/extract"
	"github.com/anortham/julie-sub010/internal/resolve"
	"github.com/anortham/julie-sub010/internal/runtime"
	"github.com/anortham/julie-sub010/internal/store"
)

// Sentinel errors returned by the Engine. Match them with errors.Is.
var (
	ErrNotDirectory        = errors.New("not a directory")
	ErrFileNotFound        = errors.New("file not found")
	ErrUnsupportedLanguage = extract.ErrUnsupportedLanguage
)

const (
	// DefaultBatchSize is the number of files committed per transaction.
	DefaultBatchSize = 32
	// DefaultPruneMinAttempts is the attempt threshold used by a pruning scan.
	DefaultPruneMinAttempts = 1
)

// Engine orchestrates the julie pipeline: file discovery, change detection,
// extraction, atomic storage, workspace resolution and query access.
type Engine struct {
	store    *store.Store
	registry *extract.Registry
	runtime  *runtime.Runtime
	resolver *resolve.Resolver
	logger   *slog.Logger

	scriptsDir    string
	scriptsFS     fs.FS
	languages     map[string]bool // nil means all languages
	exclude       []string
	workers       int
	batchSize     int
	parseTimeout  time.Duration
	bulkThreshold int
	pruneMin      int

	// useParallel enables the worker pool. Serial mode runs one worker.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		if len(languages) == 0 {
			e.languages = nil
			return
		}
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default), indexing
// uses a worker pool for parsing, with the calling goroutine as the single
// writer. Set to false for one worker.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers overrides the worker count. Zero means min(NumCPU, files).
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithBatchSize sets how many files are committed per transaction.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithParseTimeout bounds the parse of a single file.
func WithParseTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.parseTimeout = d
	}
}

// WithBulkThreshold sets the row count at which a commit drops and rebuilds
// secondary indexes and FTS triggers.
func WithBulkThreshold(n int) Option {
	return func(e *Engine) {
		e.bulkThreshold = n
	}
}

// WithScriptsDir loads Risor extraction scripts from dir. A language with an
// extract/<language>.risor script uses it instead of the built-in front-end.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS loads Risor scripts from fsys instead of from disk. This
// enables embedding scripts via go:embed. It takes priority over
// WithScriptsDir.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger routes Engine, resolver and script logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExclude adds gitignore-style patterns that discovery skips.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithPruneMinAttempts sets the attempt threshold used when a scan prunes.
func WithPruneMinAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pruneMin = n
		}
	}
}

// New creates an Engine backed by a SQLite database at dbPath. The database
// is created and migrated if needed.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchSize:     DefaultBatchSize,
		parseTimeout:  extract.DefaultParseTimeout,
		bulkThreshold: store.DefaultBulkThreshold,
		pruneMin:      DefaultPruneMinAttempts,
		useParallel:   true,
	}
	for _, opt := range opts {
		opt(e)
	}

	s, err := store.NewStore(dbPath, store.WithBulkThreshold(e.bulkThreshold))
	if err != nil {
		return nil, fmt.Errorf("julie: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("julie: migrate: %w", err)
	}
	e.store = s
	e.registry = extract.NewRegistry(extract.WithParseTimeout(e.parseTimeout))
	e.resolver = resolve.New(s, e.logger)

	if e.scriptsFS != nil || e.scriptsDir != "" {
		rtOpts := []runtime.RuntimeOption{
			runtime.WithRuntimeLogger(e.logger),
			runtime.WithFileTimeout(e.parseTimeout),
		}
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
		}
		e.runtime = runtime.NewRuntime(e.scriptsDir, rtOpts...)
		for _, lang := range e.runtime.ScriptLanguages(extract.Languages()) {
			e.registry.Register(lang, e.runtime.Extractor(lang))
			e.logger.Debug("script extractor registered", "language", lang)
		}
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// accepts reports whether lang passes the language filter and has an
// extractor.
func (e *Engine) accepts(lang string) bool {
	if e.languages != nil && !e.languages[lang] {
		return false
	}
	return e.registry.Supports(lang)
}

// IndexFiles extracts and stores the given files, skipping unsupported
// languages and files whose content hash is unchanged. Per-file failures
// are reported in IndexReport.Errors and do not stop the run. When any file
// was committed a resolver sweep follows.
//
// On cancellation the already committed file-sets stay durable and the
// report covers them; the error is ctx.Err().
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (*IndexReport, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		c, err := canonicalPath(p)
		if err != nil {
			return nil, err
		}
		abs = append(abs, c)
	}
	report, err := e.index(ctx, abs, nil)
	if err != nil {
		return report, err
	}
	if report.Indexed > 0 {
		if err := e.resolveInto(ctx, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// UpdateFile re-indexes a single file. It fails with ErrFileNotFound when
// path does not exist and ErrUnsupportedLanguage when no extractor handles
// it. Unchanged content is reported as Skipped without touching the store.
func (e *Engine) UpdateFile(ctx context.Context, path string) (*UpdateResult, error) {
	path, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("update %s: %w", path, ErrFileNotFound)
	}
	lang, ok := extract.LanguageForFile(path)
	if !ok || !e.accepts(lang) {
		return nil, fmt.Errorf("update %s: %w", path, ErrUnsupportedLanguage)
	}

	report, err := e.IndexFiles(ctx, []string{path})
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return nil, err
	}
	res := &UpdateResult{
		Path:       path,
		Language:   lang,
		Skipped:    report.Skipped > 0,
		Symbols:    report.Symbols,
		Resolution: report.Resolution,
	}
	res.Hash, err = e.store.FileHash(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", path, err)
	}
	return res, nil
}

// canonicalPath returns the absolute, cleaned form of path. The store keys
// files by this form, so a file reached through a relative or unclean path
// still maps to its one row.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}

// Resolve runs one workspace resolver sweep over the pending queue.
func (e *Engine) Resolve(ctx context.Context) (ResolveStats, error) {
	return e.resolver.Resolve(ctx)
}

func (e *Engine) resolveInto(ctx context.Context, report *IndexReport) error {
	st, err := e.Resolve(ctx)
	if err != nil {
		return err
	}
	report.Resolution = &st
	return nil
}

// PruneUnresolved declares the scan complete: pending relationships that
// failed at least minAttempts sweeps are deleted.
func (e *Engine) PruneUnresolved(ctx context.Context, minAttempts int) (int, error) {
	if minAttempts <= 0 {
		minAttempts = e.pruneMin
	}
	n, err := e.store.PruneUnresolved(ctx, minAttempts)
	if err != nil {
		return 0, err
	}
	e.logger.Info("pruned unresolved relationships", "deleted", n, "min_attempts", minAttempts)
	return n, nil
}

// ScanOption configures a single ScanDirectory call.
type ScanOption func(*scanConfig)

type scanConfig struct {
	prune bool
}

// ScanPrune prunes unresolved pending relationships after the sweep.
func ScanPrune() ScanOption {
	return func(c *scanConfig) {
		c.prune = true
	}
}

// ScanDirectory indexes every supported file under root, removes stored
// files under root that vanished from disk, and runs a resolver sweep.
// If root is inside a git repository, git ls-files decides what is
// tracked; otherwise the tree is walked honouring .gitignore.
//
// The run is recorded in the scan ledger whatever its outcome.
func (e *Engine) ScanDirectory(ctx context.Context, root string, opts ...ScanOption) (*ScanReport, error) {
	var cfg scanConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("scan %s: %w", root, ErrNotDirectory)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	start := time.Now()
	scanID, err := e.store.BeginScan(ctx, root)
	if err != nil {
		return nil, err
	}
	report := &ScanReport{ScanID: scanID, Root: root, IndexReport: &IndexReport{}}
	defer func() {
		report.Duration = time.Since(start)
		status := store.ScanCompleted
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = store.ScanCancelled
		case err != nil:
			status = store.ScanFailed
		}
		if ferr := e.store.FinishScan(store.ScanRun{
			ID:           scanID,
			Status:       status,
			FilesIndexed: report.Indexed,
			FilesSkipped: report.Skipped,
			FilesFailed:  report.Failed,
			SymbolsTotal: report.Symbols,
		}); ferr != nil {
			e.logger.Warn("record scan", "scan_id", scanID, "err", ferr)
		}
	}()

	paths, err := e.discover(root)
	if err != nil {
		return report, err
	}
	report.Discovered = len(paths)

	report.Removed, err = e.removeVanished(ctx, root)
	if err != nil {
		return report, err
	}

	force, err := e.forcedLanguages(ctx)
	if err != nil {
		return report, err
	}

	report.IndexReport, err = e.index(ctx, paths, force)
	if err != nil {
		return report, err
	}
	if report.Indexed > 0 || report.Removed > 0 {
		if err = e.resolveInto(ctx, report.IndexReport); err != nil {
			return report, err
		}
	}
	if cfg.prune {
		if report.Pruned, err = e.PruneUnresolved(ctx, e.pruneMin); err != nil {
			return report, err
		}
	}
	if len(force) > 0 && report.Failed == 0 {
		e.storeScriptsHash(ctx)
	}

	e.logger.Info("scan complete",
		"root", root,
		"discovered", report.Discovered,
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"removed", report.Removed,
		"duration", time.Since(start))
	return report, nil
}

// removeVanished deletes stored files under root that no longer exist on
// disk. Edges into them are demoted to pending by the store.
func (e *Engine) removeVanished(ctx context.Context, root string) (int, error) {
	files, err := e.store.Files(ctx)
	if err != nil {
		return 0, err
	}
	prefix := root + string(filepath.Separator)
	removed := 0
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if _, err := os.Stat(f.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := e.store.DeleteFile(ctx, f.Path); err != nil {
			return removed, fmt.Errorf("remove vanished %s: %w", f.Path, err)
		}
		e.logger.Debug("removed vanished file", "path", f.Path)
		removed++
	}
	return removed, nil
}

// scriptsHash computes a SHA-256 over every Risor script the Engine can
// load, sorted by path. Empty when no scripts are configured.
func (e *Engine) scriptsHash() string {
	if e.runtime == nil {
		return ""
	}
	var paths []string
	collect := func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(path, ".risor") {
			paths = append(paths, path)
		}
		return nil
	}
	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", collect)
	} else {
		fs.WalkDir(os.DirFS(e.scriptsDir), ".", collect)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		h.Write([]byte(p))
		h.Write([]byte(src))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ScriptsChanged reports whether the loaded scripts differ from the ones
// that built the current database. It is false when no scripts are
// configured.
func (e *Engine) ScriptsChanged(ctx context.Context) bool {
	current := e.scriptsHash()
	if current == "" {
		return false
	}
	stored, err := e.store.GetMetadata(ctx, store.MetaScriptsHash)
	if err != nil {
		return true
	}
	return current != stored
}

func (e *Engine) storeScriptsHash(ctx context.Context) {
	if err := e.store.SetMetadata(ctx, store.MetaScriptsHash, e.scriptsHash()); err != nil {
		e.logger.Warn("store scripts hash", "err", err)
	}
}

// forcedLanguages returns the script-backed languages that must be
// re-extracted regardless of content hash because their scripts changed.
func (e *Engine) forcedLanguages(ctx context.Context) (map[string]bool, error) {
	if !e.ScriptsChanged(ctx) {
		return nil, nil
	}
	force := make(map[string]bool)
	for _, lang := range e.runtime.ScriptLanguages(extract.Languages()) {
		force[lang] = true
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return force, nil
}
