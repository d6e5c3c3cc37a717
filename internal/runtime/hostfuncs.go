package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/anortham/julie-sub010/internal/extract"
)

// treeSet owns the syntax trees parsed during one script evaluation: the
// file's own tree and any snippet a script parses itself. node_text and
// query recover a node's source and grammar from its root, because smacker
// nodes do not expose their tree. Close releases every tree at once.
type treeSet struct {
	timeout time.Duration

	mu    sync.RWMutex
	trees []*sitter.Tree
	roots map[uintptr]parsedSource
}

type parsedSource struct {
	src  []byte
	lang *sitter.Language
}

func newTreeSet(timeout time.Duration) *treeSet {
	return &treeSet{timeout: timeout, roots: make(map[uintptr]parsedSource)}
}

// parse parses src with the grammar registered for language. Each parse is
// bounded by the set's timeout on top of ctx.
func (ts *treeSet) parse(ctx context.Context, src []byte, language string) (*sitter.Node, error) {
	grammar, ok := extract.GrammarForLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", language, err)
	}
	if ts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ts.timeout)
		defer cancel()
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("parse %s: %w", language, ctxErr)
		}
		return nil, fmt.Errorf("parse %s: %w", language, err)
	}

	root := tree.RootNode()
	ts.mu.Lock()
	ts.trees = append(ts.trees, tree)
	ts.roots[rootKey(root)] = parsedSource{src: src, lang: grammar}
	ts.mu.Unlock()
	return root, nil
}

func (ts *treeSet) lookup(node *sitter.Node) (parsedSource, bool) {
	for node.Parent() != nil {
		node = node.Parent()
	}
	ts.mu.RLock()
	ps, ok := ts.roots[rootKey(node)]
	ts.mu.RUnlock()
	return ps, ok
}

func (ts *treeSet) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, t := range ts.trees {
		t.Close()
	}
	ts.trees = nil
	clear(ts.roots)
}

func rootKey(root *sitter.Node) uintptr {
	return uintptr(unsafe.Pointer(root))
}

// nodeArg unwraps a proxied *sitter.Node argument.
func nodeArg(fn string, obj object.Object) (*sitter.Node, *object.Error) {
	p, ok := obj.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected a node, got %s", fn, obj.Type())
	}
	node, ok := p.Interface().(*sitter.Node)
	if !ok || node == nil {
		return nil, object.Errorf("%s: expected a node, got %T", fn, p.Interface())
	}
	return node, nil
}

func stringArg(fn, what string, obj object.Object) (string, *object.Error) {
	s, ok := obj.(*object.String)
	if !ok {
		return "", object.Errorf("%s: %s must be a string, got %s", fn, what, obj.Type())
	}
	return s.Value(), nil
}

func proxyNode(fn string, node *sitter.Node) object.Object {
	if node == nil {
		return object.Nil
	}
	p, err := object.NewProxy(node)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	return p
}

// makeParseFn creates "parse". Scripts use it for embedded snippets in
// another language; the file itself arrives pre-parsed as root.
//
// parse(source, language) → root node
func makeParseFn(ts *treeSet) *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse", 2, len(args))
		}
		src, errObj := stringArg("parse", "source", args[0])
		if errObj != nil {
			return errObj
		}
		lang, errObj := stringArg("parse", "language", args[1])
		if errObj != nil {
			return errObj
		}
		root, err := ts.parse(ctx, []byte(src), lang)
		if err != nil {
			return object.Errorf("parse: %v", err)
		}
		return proxyNode("parse", root)
	})
}

// makeNodeTextFn creates "node_text". Risor proxies cannot pass the []byte
// that Node.Content needs.
//
// node_text(node) → string
func makeNodeTextFn(ts *treeSet) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		ps, ok := ts.lookup(node)
		if !ok {
			return object.Errorf("node_text: node does not belong to a parsed tree")
		}
		return object.NewString(node.Content(ps.src))
	})
}

// makeQueryFn creates "query". Each match is a map from capture name to
// node; #eq? style predicates are applied.
//
// query(pattern, node) → [{capture: node}]
func makeQueryFn(ts *treeSet) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, errObj := stringArg("query", "pattern", args[0])
		if errObj != nil {
			return errObj
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}
		ps, ok := ts.lookup(node)
		if !ok {
			return object.Errorf("query: node does not belong to a parsed tree")
		}

		q, err := sitter.NewQuery([]byte(pattern), ps.lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()
		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			if err := ctx.Err(); err != nil {
				return object.NewError(err)
			}
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, ps.src)
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				captures[q.CaptureNameForId(c.Index)] = proxyNode("query", c.Node)
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn creates "node_child", which returns Risor nil for a
// missing field rather than a proxied nil pointer.
//
// node_child(node, field) → node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, errObj := stringArg("node_child", "field", args[1])
		if errObj != nil {
			return errObj
		}
		return proxyNode("node_child", node.ChildByFieldName(field))
	})
}

// logObject is the script-visible log, tagged with the script being run.
type logObject struct {
	logger *slog.Logger
	script string
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg, "script", l.script) }
func (l *logObject) Info(msg string)  { l.logger.Info(msg, "script", l.script) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg, "script", l.script) }
func (l *logObject) Error(msg string) { l.logger.Error(msg, "script", l.script) }
