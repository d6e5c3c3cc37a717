package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/anortham/julie-sub010"
	"github.com/anortham/julie-sub010/internal/extract"
)

var (
	flagDir         string
	flagPrune       bool
	flagLanguages   string
	flagFile        string
	flagMinAttempts int
	flagDebounce    time.Duration
	flagNoScan      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index a directory",
	Long:  "Indexes every supported file under --dir, drops files that vanished from disk and resolves cross-file references.",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-index a single file",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run a resolver sweep over pending relationships",
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Declare the last scan complete and delete unresolvable pending relationships",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan a directory, then keep its index current as files change",
	Long:  "Scans --dir once, then re-indexes files as they are written and removes them as they are deleted, until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	scanCmd.Flags().StringVar(&flagDir, "dir", ".", "directory to index")
	scanCmd.Flags().BoolVar(&flagPrune, "prune", false, "prune unresolved pending relationships after resolution")
	scanCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,python)")

	updateCmd.Flags().StringVar(&flagFile, "file", "", "file to re-index")
	_ = updateCmd.MarkFlagRequired("file")

	watchCmd.Flags().StringVar(&flagDir, "dir", ".", "directory to watch")
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", julie.DefaultWatchDebounce, "quiet period before changes are applied")
	watchCmd.Flags().BoolVar(&flagNoScan, "no-scan", false, "skip the initial scan")

	pruneCmd.Flags().IntVar(&flagMinAttempts, "min-attempts", 0, "only prune rows that failed at least this many sweeps (default: config or 1)")
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()
	dir, err := resolveTargetDir(flagDir)
	if err != nil {
		return err
	}

	var extra []julie.Option
	if langs := splitLanguages(flagLanguages); len(langs) > 0 {
		extra = append(extra, julie.WithLanguages(langs...))
	}
	e, dbPath, err := openEngine(dir, extra...)
	if err != nil {
		return err
	}
	defer e.Close()

	var opts []julie.ScanOption
	if flagPrune {
		opts = append(opts, julie.ScanPrune())
	}
	report, err := e.ScanDirectory(cmd.Context(), dir, opts...)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	for _, fe := range report.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", fe.Error())
	}
	fmt.Fprintf(os.Stderr, "Scanned %s in %s: %d indexed, %d unchanged, %d failed, %d removed\n",
		dir, time.Since(start).Round(time.Millisecond),
		report.Indexed, report.Skipped, report.Failed, report.Removed)
	if r := report.Resolution; r != nil {
		fmt.Fprintf(os.Stderr, "Resolved %d of %d pending (%d ambiguous, %d remaining)\n",
			r.Resolved, r.Total, r.Ambiguous, r.Remaining)
	}
	if flagPrune {
		fmt.Fprintf(os.Stderr, "Pruned %d unresolved\n", report.Pruned)
	}
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := resolveTargetDir(flagDir)
	if err != nil {
		return err
	}
	e, dbPath, err := openEngine(dir)
	if err != nil {
		return err
	}
	defer e.Close()

	if !flagNoScan {
		report, err := e.ScanDirectory(cmd.Context(), dir)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Scanned %s: %d indexed, %d unchanged, %d failed, %d removed\n",
			dir, report.Indexed, report.Skipped, report.Failed, report.Removed)
	}
	fmt.Fprintf(os.Stderr, "Watching %s (database %s)\n", dir, dbPath)

	w := cmd.OutOrStdout()
	return e.Watch(cmd.Context(), dir,
		julie.WatchDebounce(flagDebounce),
		julie.WatchNotify(func(ev julie.WatchEvent) { formatWatchEventText(w, ev) }),
	)
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", julie.ErrNotDirectory, abs)
	}
	return abs, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	path, err := updatablePath(flagFile)
	if err != nil {
		return err
	}

	e, _, err := openEngine(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.UpdateFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "skipped %s: content unchanged (hash %s)\n", path, hashPrefix(res.Hash))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %d symbols (%s)\n", path, res.Symbols, res.Language)
	return nil
}

// updatablePath resolves file and rejects it before any store is opened
// when it is missing, a directory, or has no extractor.
func updatablePath(file string) (string, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", file, err)
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", julie.ErrFileNotFound, path)
	}
	if _, ok := extract.LanguageForFile(path); !ok {
		return "", fmt.Errorf("%s: %w: no extractor for this file type", path, julie.ErrUnsupportedLanguage)
	}
	return path, nil
}

func hashPrefix(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func runResolve(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(workingDir())
	if err != nil {
		return err
	}
	defer e.Close()

	stats, err := e.Resolve(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolving: %w", err)
	}
	return output(cmd.OutOrStdout(), stats, func() {
		formatResolveText(cmd.OutOrStdout(), stats)
	})
}

func runPrune(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(workingDir())
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.PruneUnresolved(cmd.Context(), flagMinAttempts)
	if err != nil {
		return fmt.Errorf("pruning: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d unresolved relationship(s)\n", n)
	return nil
}
