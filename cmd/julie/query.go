package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anortham/julie-sub010"
	"github.com/anortham/julie-sub010/internal/mcpserver"
)

var (
	flagFiles     bool
	flagLimit     int
	flagTransport string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over symbols, or file contents with --files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counts, search index parity and orphan checks",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var traceCmd = &cobra.Command{
	Use:   "trace <from> <to>",
	Short: "Shortest call path between two named symbols",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrace,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index as MCP tools",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	searchCmd.Flags().BoolVar(&flagFiles, "files", false, "search file paths and contents instead of symbols")
	searchCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum results")

	serveCmd.Flags().StringVar(&flagTransport, "transport", "stdio", "MCP transport (stdio)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(workingDir())
	if err != nil {
		return err
	}
	defer e.Close()

	q := strings.Join(args, " ")
	w := cmd.OutOrStdout()
	if flagFiles {
		hits, err := e.Query().SearchFiles(cmd.Context(), q, flagLimit)
		if err != nil {
			return err
		}
		if hits == nil {
			hits = []julie.FileHit{}
		}
		return output(w, hits, func() { formatFileHitsText(w, hits) })
	}
	syms, err := e.Query().Search(cmd.Context(), q, flagLimit)
	if err != nil {
		return err
	}
	if syms == nil {
		syms = []julie.Symbol{}
	}
	return output(w, syms, func() { formatSymbolsText(w, syms) })
}

func runStats(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(workingDir())
	if err != nil {
		return err
	}
	defer e.Close()

	rep, err := e.Query().Integrity(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	return output(w, rep, func() { formatIntegrityText(w, rep) })
}

func runTrace(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(workingDir())
	if err != nil {
		return err
	}
	defer e.Close()

	path, err := e.Query().TracePath(cmd.Context(), args[0], args[1])
	if errors.Is(err, julie.ErrNoPath) {
		return fmt.Errorf("no call path from %s to %s", args[0], args[1])
	}
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	return output(w, path, func() { formatPathText(w, path) })
}

func runServe(cmd *cobra.Command, args []string) error {
	if flagTransport != "stdio" {
		return fmt.Errorf("unsupported transport %q (supported: stdio)", flagTransport)
	}
	e, _, err := openEngine(workingDir())
	if err != nil {
		return err
	}
	defer e.Close()
	return mcpserver.New(e, version, logger).Run(cmd.Context())
}
