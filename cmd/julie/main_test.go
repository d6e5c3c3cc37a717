package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anortham/julie-sub010"
	"github.com/anortham/julie-sub010/internal/graph"
)

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	got, err := resolveTargetDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	file := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(file, []byte("package a\n"), 0o644))
	_, err = resolveTargetDir(file)
	require.ErrorIs(t, err, julie.ErrNotDirectory)

	_, err = resolveTargetDir(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("text"))
	assert.NoError(t, validateFormat("json"))
	assert.Error(t, validateFormat("yaml"))
}

func TestSplitLanguages(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"go", "python"}, splitLanguages(" go, ,python "))
	assert.Nil(t, splitLanguages(""))
}

func TestUpdatablePath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	goFile := filepath.Join(dir, "a.go")
	txtFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(goFile, []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(txtFile, []byte("notes\n"), 0o644))

	got, err := updatablePath(goFile)
	require.NoError(t, err)
	assert.Equal(t, goFile, got)

	_, err = updatablePath(txtFile)
	require.ErrorIs(t, err, julie.ErrUnsupportedLanguage)
	assert.Contains(t, err.Error(), "no extractor for this file type")

	_, err = updatablePath(filepath.Join(dir, "missing.go"))
	require.ErrorIs(t, err, julie.ErrFileNotFound)

	_, err = updatablePath(dir)
	require.ErrorIs(t, err, julie.ErrFileNotFound)
}

func TestFormatWatchEventText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatWatchEventText(&buf, julie.WatchEvent{Path: "/w/a.go", Update: &julie.UpdateResult{Symbols: 3, Language: "go"}})
	formatWatchEventText(&buf, julie.WatchEvent{Path: "/w/b.go", Update: &julie.UpdateResult{Skipped: true}})
	formatWatchEventText(&buf, julie.WatchEvent{Path: "/w/pkg", Removed: 2})
	formatWatchEventText(&buf, julie.WatchEvent{Path: "/w/c.go", Err: julie.ErrUnsupportedLanguage})
	assert.Equal(t, "updated  /w/a.go: 3 symbols (go)\n"+
		"skipped  /w/b.go: content unchanged\n"+
		"removed  /w/pkg (2 files)\n"+
		"error    /w/c.go: unsupported language\n", buf.String())
}

func TestHashPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0123456789ab", hashPrefix("0123456789abcdef"))
	assert.Equal(t, "abc", hashPrefix("abc"))
}

func TestFormatSymbolsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatSymbolsText(&buf, []julie.Symbol{{
		Name: "Run", Kind: graph.KindFunction, Visibility: graph.VisibilityPublic,
		FilePath: "/src/app.go", StartLine: 3,
	}})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Run")
	assert.Contains(t, out, "/src/app.go")
}

func TestFormatPathText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatPathText(&buf, []julie.Symbol{
		{Name: "main", FilePath: "main.go", StartLine: 1},
		{Name: "run", FilePath: "run.go", StartLine: 7},
	})
	assert.Equal(t, "  main  main.go:1\n→ run  run.go:7\n", buf.String())
}
