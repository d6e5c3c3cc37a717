package julie

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs a watcher on dir with a short debounce and returns the
// channel its events arrive on.
func startWatcher(t *testing.T, e *Engine, dir string) <-chan WatchEvent {
	t.Helper()
	events := make(chan WatchEvent, 64)
	w, err := e.NewWatcher(dir,
		WatchDebounce(20*time.Millisecond),
		WatchNotify(func(ev WatchEvent) {
			select {
			case events <- ev:
			default:
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return events
}

// waitFor returns the first event for path, failing after a few seconds.
func waitFor(t *testing.T, events <-chan WatchEvent, path string) WatchEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("no watch event for %s", path)
		}
	}
}

// symbolCount polls for the number of symbols named name, -1 on error.
func symbolCount(e *Engine, name string) func() int {
	return func() int {
		syms, err := e.Query().FindSymbol(context.Background(), name)
		if err != nil {
			return -1
		}
		return len(syms)
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond, msg)
}

// =============================================================================
// Watcher
// =============================================================================

func TestWatch_IndexesWrittenFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := newTestEngine(t)
	writeFile(t, dir, "helper.go", helperSource)
	_, err := e.ScanDirectory(context.Background(), dir)
	require.NoError(t, err)

	events := startWatcher(t, e, dir)

	caller := writeFile(t, dir, "caller.go", callerSource)
	ev := waitFor(t, events, caller)
	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Update)
	assert.Equal(t, "go", ev.Update.Language)

	helperID := requireOneSymbol(t, e, "helperFunction").ID
	eventually(t, func() bool {
		callers, err := e.Query().Callers(context.Background(), helperID)
		return err == nil && len(callers) == 1 && callers[0].Other.Name == "caller"
	}, "caller -> helperFunction edge")
	requireHealthy(t, e)
}

func TestWatch_NewDirectoryIsWatched(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := newTestEngine(t)
	startWatcher(t, e, dir)

	writeFile(t, dir, filepath.Join("pkg", "sub", "helper.go"), helperSource)
	helpers := symbolCount(e, "helperFunction")
	eventually(t, func() bool { return helpers() == 1 }, "helper indexed")

	// The new directory is now watched in its own right.
	writeFile(t, dir, filepath.Join("pkg", "sub", "helper.go"), "package app\n\nfunc movedHelper() int { return 2 }\n")
	moved := symbolCount(e, "movedHelper")
	eventually(t, func() bool { return moved() == 1 && helpers() == 0 }, "rewrite indexed")
	requireHealthy(t, e)
}

func TestWatch_RemovalDemotesEdges(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := newTestEngine(t)
	helper := writeFile(t, dir, "helper.go", helperSource)
	writeFile(t, dir, "caller.go", callerSource)
	_, err := e.ScanDirectory(context.Background(), dir)
	require.NoError(t, err)

	events := startWatcher(t, e, dir)
	require.NoError(t, os.Remove(helper))

	ev := waitFor(t, events, helper)
	require.NoError(t, ev.Err)
	assert.Equal(t, 1, ev.Removed)

	assert.Zero(t, symbolCount(e, "helperFunction")())
	pending, err := e.Query().Unresolved(context.Background(), "helperFunction")
	require.NoError(t, err)
	assert.Len(t, pending, 1, "the caller's edge waits for a new target")
	requireHealthy(t, e)
}

func TestWatch_IgnoresExcludedAndUnsupported(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := newTestEngine(t, WithExclude("generated/"))
	startWatcher(t, e, dir)

	writeFile(t, dir, filepath.Join("generated", "gen.go"), helperSource)
	writeFile(t, dir, filepath.Join(".cache", "c.go"), helperSource)
	writeFile(t, dir, "notes.txt", "not code")
	marker := writeFile(t, dir, "marker.go", "package app\n\nfunc marker() {}\n")

	// Excluded paths are never queued, so once the marker lands nothing
	// else can follow it.
	markers := symbolCount(e, "marker")
	eventually(t, func() bool { return markers() == 1 }, "marker indexed")
	files, err := e.Store().Files(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, marker, files[0].Path)
}

func TestWatch_NotADirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := newTestEngine(t)
	path := writeFile(t, dir, "a.go", helperSource)

	_, err := e.NewWatcher(path)
	require.ErrorIs(t, err, ErrNotDirectory)
	require.ErrorIs(t, e.Watch(context.Background(), filepath.Join(dir, "missing")), ErrNotDirectory)
}

func TestWatcher_Excluded(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := newTestEngine(t, WithExclude("*.gen.go", "build/"))
	w, err := e.NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	cases := []struct {
		rel      string
		dir      bool
		excluded bool
	}{
		{"a.go", false, false},
		{"pkg/a.go", false, false},
		{"pkg/a.gen.go", false, true},
		{"node_modules/x.go", false, true},
		{".git/config", false, true},
		{"build", true, true},
		{"vendor", true, true},
		{"src", true, false},
	}
	for _, tc := range cases {
		got := w.excluded(filepath.Join(w.Root(), filepath.FromSlash(tc.rel)), tc.dir)
		assert.Equal(t, tc.excluded, got, tc.rel)
	}
	assert.True(t, w.excluded(filepath.Dir(w.Root()), true), "outside the root")
}
