package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anortham/julie-sub010"
	"github.com/anortham/julie-sub010/internal/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagDB       string
	flagConfig   string
	flagLogLevel string
	flagFormat   string
)

// cfg and logger are set by the root PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "julie",
	Short:         "Incremental code knowledge graph",
	Long:          "Julie indexes source code into a SQLite graph of symbols and relationships and keeps it current as files change.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		c, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			c.LogLevel = flagLogLevel
		}
		lvl, err := c.Level()
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "database path (default: .julie/index.db under the repository root)")
	pf.StringVar(&flagConfig, "config", config.DefaultPath, "config file; a missing file is ignored")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error (default: info)")
	pf.StringVar(&flagFormat, "format", "text", "output format: text|json")

	rootCmd.AddCommand(scanCmd, updateCmd, watchCmd, resolveCmd, pruneCmd, searchCmd, statsCmd, traceCmd, serveCmd)
}

// openEngine opens the database at the resolved path with the configured
// options plus extra.
func openEngine(startDir string, extra ...julie.Option) (*julie.Engine, string, error) {
	dbPath := resolveDBPath(findRepoRoot(startDir))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	opts := append(cfg.EngineOptions(), julie.WithLogger(logger))
	opts = append(opts, extra...)
	e, err := julie.New(dbPath, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", dbPath, err)
	}
	return e, dbPath, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns --db, then the configured db, then the default
// under repoRoot. Relative paths are taken from the working directory.
func resolveDBPath(repoRoot string) string {
	switch {
	case flagDB != "":
		return flagDB
	case cfg != nil && cfg.DB != "":
		return cfg.DB
	}
	return filepath.Join(repoRoot, ".julie", "index.db")
}

func splitLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
