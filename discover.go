package julie

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/anortham/julie-sub010/internal/extract"
)

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"target":       true,
}

// discover lists candidate source files under root. git ls-files is used
// inside a repository; otherwise the tree is walked. Exclude patterns apply
// to both.
func (e *Engine) discover(root string) ([]string, error) {
	matcher := e.excludeMatcher(root)
	paths, err := e.gitListFiles(root, matcher)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "err", err)
		return e.walkListFiles(root, matcher)
	}
	return paths, nil
}

// excludeMatcher compiles root's .gitignore (if any) plus the configured
// exclude patterns.
func (e *Engine) excludeMatcher(root string) *ignore.GitIgnore {
	gitignore := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignore); err == nil {
		if m, err := ignore.CompileIgnoreFileAndLines(gitignore, e.exclude...); err == nil {
			return m
		}
	}
	return ignore.CompileIgnoreLines(e.exclude...)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to indexable languages.
func (e *Engine) gitListFiles(root string, matcher *ignore.GitIgnore) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || matcher.MatchesPath(line) {
			continue
		}
		if abs := filepath.Join(root, line); e.indexable(abs) {
			paths = append(paths, abs)
		}
	}
	return paths, nil
}

// walkListFiles walks root, skipping hidden directories, dependency
// directories and anything the matcher ignores.
func (e *Engine) walkListFiles(root string, matcher *ignore.GitIgnore) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] || matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}
		if e.indexable(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func (e *Engine) indexable(path string) bool {
	lang, ok := extract.LanguageForFile(path)
	return ok && e.accepts(lang)
}
