package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/anortham/julie-sub010"
)

func validateFormat(f string) error {
	switch f {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("invalid --format %q: must be text or json", f)
}

// output writes v as indented JSON for --format json and calls text
// otherwise.
func output(w io.Writer, v any, text func()) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

// formatSymbolsText formats symbols as aligned columns.
func formatSymbolsText(w io.Writer, syms []julie.Symbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVISIBILITY\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.Name, s.Kind, s.Visibility, s.FilePath, s.StartLine)
	}
	tw.Flush()
}

func formatFileHitsText(w io.Writer, hits []julie.FileHit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLANGUAGE\tSNIPPET")
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Path, h.Language, h.Snippet)
	}
	tw.Flush()
}

// formatPathText prints one hop per line as "name  file:line".
func formatPathText(w io.Writer, path []julie.Symbol) {
	for i, s := range path {
		arrow := "  "
		if i > 0 {
			arrow = "→ "
		}
		fmt.Fprintf(w, "%s%s  %s:%d\n", arrow, s.Name, s.FilePath, s.StartLine)
	}
}

func formatResolveText(w io.Writer, s julie.ResolveStats) {
	fmt.Fprintf(w, "Pending:     %d\n", s.Total)
	fmt.Fprintf(w, "Resolved:    %d (%d ambiguous)\n", s.Resolved, s.Ambiguous)
	fmt.Fprintf(w, "Unmatched:   %d (%d with no valid kind)\n", s.NoCandidates, s.NoValidCandidates)
	fmt.Fprintf(w, "Remaining:   %d\n", s.Remaining)
}

func formatIntegrityText(w io.Writer, r *julie.IntegrityReport) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files:         %d\n", r.Stats.Files)
	fmt.Fprintf(w, "Symbols:       %d\n", r.Stats.Symbols)
	fmt.Fprintf(w, "Relationships: %d\n", r.Stats.Relationships)
	fmt.Fprintf(w, "Pending:       %d\n", r.Stats.Pending)
	fmt.Fprintln(w)

	if len(r.Stats.Languages) > 0 {
		langs := make([]string, 0, len(r.Stats.Languages))
		for l := range r.Stats.Languages {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		fmt.Fprintln(w, "Languages:")
		for _, l := range langs {
			fmt.Fprintf(w, "  %s: %d files\n", l, r.Stats.Languages[l])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Search mirrors: symbols %d/%d, files %d/%d\n",
		r.Mirrors.SymbolsFTS, r.Mirrors.Symbols, r.Mirrors.FilesFTS, r.Mirrors.Files)
	fmt.Fprintf(w, "Orphan relationships: %d\n", r.OrphanEdges)
	if r.LastCompleteScan != "" {
		fmt.Fprintf(w, "Last complete scan: %s\n", r.LastCompleteScan)
	}
	status := "OK"
	if !r.OK() {
		status = "DEGRADED"
	}
	fmt.Fprintf(w, "Status: %s\n", status)
}

// formatWatchEventText prints one line per applied change.
func formatWatchEventText(w io.Writer, ev julie.WatchEvent) {
	switch {
	case ev.Err != nil:
		fmt.Fprintf(w, "error    %s: %v\n", ev.Path, ev.Err)
	case ev.Removed > 0:
		fmt.Fprintf(w, "removed  %s (%d files)\n", ev.Path, ev.Removed)
	case ev.Update != nil && ev.Update.Skipped:
		fmt.Fprintf(w, "skipped  %s: content unchanged\n", ev.Path)
	case ev.Update != nil:
		fmt.Fprintf(w, "updated  %s: %d symbols (%s)\n", ev.Path, ev.Update.Symbols, ev.Update.Language)
	}
}
