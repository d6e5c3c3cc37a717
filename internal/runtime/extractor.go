package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/anortham/julie-sub010/internal/extract"
)

// ScriptExtractor runs extract/<language>.risor for every file. The script
// sees the file through these globals:
//
//	file_path, language, source   the Source fields
//	root                          the parsed root node, or nil without a grammar
//	emit_symbol, emit_reference   feed the draft
//	set_parent, lookup            adjust and query what was emitted
//
// The parse and the script share one deadline, the runtime's file timeout.
// After the script returns, the draft is linked with the language's
// builtins exactly like the tree-sitter front-end.
type ScriptExtractor struct {
	rt       *Runtime
	language string
	script   string
}

var _ extract.Extractor = (*ScriptExtractor)(nil)

// Extractor returns a script-backed extractor for language.
func (r *Runtime) Extractor(language string) *ScriptExtractor {
	return &ScriptExtractor{rt: r, language: language, script: ExtractionScriptPath(language)}
}

// Extract implements extract.Extractor.
func (e *ScriptExtractor) Extract(ctx context.Context, src extract.Source) (*extract.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code, err := e.rt.LoadScript(e.script)
	if err != nil {
		return nil, err
	}
	if e.rt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.rt.timeout)
		defer cancel()
	}

	// Trees parsed for this file, by the extractor or the script, are
	// released with it.
	ts := newTreeSet(0)
	defer ts.Close()
	draft := extract.NewDraft(src)
	globals := map[string]any{
		"file_path":      object.NewString(src.Path),
		"language":       object.NewString(src.Language),
		"source":         object.NewString(string(src.Content)),
		"root":           object.Nil,
		"emit_symbol":    makeEmitSymbolFn(draft),
		"emit_reference": makeEmitReferenceFn(draft),
		"set_parent":     makeSetParentFn(draft),
		"lookup":         makeLookupFn(draft),
	}

	if _, ok := extract.GrammarForLanguage(src.Language); ok {
		root, err := ts.parse(ctx, src.Content, src.Language)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Path, err)
		}
		globals["root"] = mustProxy(root)
	}

	if err := e.rt.eval(ctx, code, e.script, ts, globals); err != nil {
		return nil, err
	}
	return draft.Link(extract.BuiltinsFor(src.Language)), nil
}
