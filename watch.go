package julie

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/anortham/julie-sub010/internal/store"
)

// DefaultWatchDebounce is how long a watcher waits after the last event
// before re-indexing what changed.
const DefaultWatchDebounce = 200 * time.Millisecond

// WatchEvent reports one path the watcher acted on. Exactly one of Update,
// Removed and Err describes the outcome.
type WatchEvent struct {
	Path    string
	Update  *UpdateResult
	Removed int
	Err     error
}

// WatchOption configures a Watcher.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	notify   func(WatchEvent)
}

// WatchDebounce sets the quiet period before queued changes are applied.
func WatchDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WatchNotify registers fn to receive every WatchEvent, in order.
func WatchNotify(fn func(WatchEvent)) WatchOption {
	return func(c *watchConfig) {
		c.notify = fn
	}
}

// Watcher keeps the index of one directory tree current as files change.
// Writes and creations go through UpdateFile; deletions and renames away
// remove the file, demoting edges into it, and run a resolver sweep.
type Watcher struct {
	e       *Engine
	root    string
	cfg     watchConfig
	matcher *ignore.GitIgnore
	fsw     *fsnotify.Watcher

	changed map[string]bool
	gone    map[string]bool
}

// NewWatcher registers root and every indexable directory below it. Events
// are not read until Run.
func (e *Engine) NewWatcher(root string, opts ...WatchOption) (*Watcher, error) {
	cfg := watchConfig{debounce: DefaultWatchDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %w", root, ErrNotDirectory)
	}
	root, err = canonicalPath(root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	w := &Watcher{
		e:       e,
		root:    root,
		cfg:     cfg,
		matcher: e.excludeMatcher(root),
		fsw:     fsw,
		changed: make(map[string]bool),
		gone:    make(map[string]bool),
	}
	if _, err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Watch indexes changes under root until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, root string, opts ...WatchOption) error {
	w, err := e.NewWatcher(root, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Root is the absolute directory being watched.
func (w *Watcher) Root() string { return w.root }

// Run applies file changes until ctx is cancelled, then releases the OS
// watches. Changes still queued at cancellation are dropped; the next scan
// picks them up. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.e.logger.Info("watching", "root", w.root, "debounce", w.cfg.debounce)

	timer := time.NewTimer(w.cfg.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.e.logger.Info("watch stopped", "root", w.root)
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				timer.Reset(w.cfg.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.e.logger.Warn("watch error", "root", w.root, "err", err)
		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// Close releases the OS watches of a Watcher that was never run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handle queues the work one event implies and reports whether anything
// was queued.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	path := filepath.Clean(ev.Name)
	if w.excluded(path, false) {
		return false
	}
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.excluded(path, true) {
				return false
			}
			// Files written before the watch was added raise no events.
			files, err := w.addTree(path)
			if err != nil {
				w.e.logger.Warn("watch directory", "path", path, "err", err)
			}
			for _, f := range files {
				w.changed[f] = true
			}
			return len(files) > 0
		}
		return w.queueChanged(path)
	case ev.Has(fsnotify.Write):
		return w.queueChanged(path)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.changed, path)
		w.gone[path] = true
		return true
	}
	return false
}

func (w *Watcher) queueChanged(path string) bool {
	if !w.e.indexable(path) {
		return false
	}
	delete(w.gone, path)
	w.changed[path] = true
	return true
}

// excluded applies the scan's directory rules and exclude patterns to a
// path under root.
func (w *Watcher) excluded(path string, dir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	if rel == "." {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for _, p := range parts[:len(parts)-1] {
		if strings.HasPrefix(p, ".") || skipDirs[p] {
			return true
		}
	}
	if dir {
		name := parts[len(parts)-1]
		return strings.HasPrefix(name, ".") || skipDirs[name] || w.matcher.MatchesPath(rel+"/")
	}
	return w.matcher.MatchesPath(rel)
}

// addTree watches dir and its subdirectories, returning the indexable files
// found on the way.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.root && w.excluded(path, true) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if !w.excluded(path, false) && w.e.indexable(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// flush applies queued changes: removals first, so a rename's new name can
// take over edges the old name lost, then updates in path order.
func (w *Watcher) flush(ctx context.Context) {
	gone := sortedKeys(w.gone)
	changed := sortedKeys(w.changed)
	clear(w.gone)
	clear(w.changed)

	removed := 0
	for _, path := range gone {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			// Renamed back or recreated before the quiet period ended.
			if w.e.indexable(path) {
				changed = append(changed, path)
			}
			continue
		}
		n, err := w.remove(ctx, path)
		removed += n
		if n > 0 || err != nil {
			w.notify(WatchEvent{Path: path, Removed: n, Err: err})
		}
	}
	if removed > 0 {
		if _, err := w.e.Resolve(ctx); err != nil {
			w.e.logger.Warn("resolve after removal", "err", err)
		}
	}

	sort.Strings(changed)
	for _, path := range changed {
		res, err := w.e.UpdateFile(ctx, path)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			w.e.logger.Warn("watch update", "path", path, "err", err)
		} else if !res.Skipped {
			w.e.logger.Debug("watch updated", "path", path, "symbols", res.Symbols)
		}
		w.notify(WatchEvent{Path: path, Update: res, Err: err})
	}
}

// remove deletes path from the index. A vanished directory removes every
// stored file below it.
func (w *Watcher) remove(ctx context.Context, path string) (int, error) {
	_, err := w.e.store.FileHash(ctx, path)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return w.e.removeVanished(ctx, path)
	case err != nil:
		return 0, err
	}
	if err := w.e.store.DeleteFile(ctx, path); err != nil {
		return 0, fmt.Errorf("watch remove %s: %w", path, err)
	}
	w.e.logger.Debug("watch removed", "path", path)
	return 1, nil
}

func (w *Watcher) notify(ev WatchEvent) {
	if w.cfg.notify != nil {
		w.cfg.notify(ev)
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
