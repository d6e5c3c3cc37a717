package extract

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultParseTimeout bounds a single file parse.
const DefaultParseTimeout = 10 * time.Second

// Registry routes a language tag to its Extractor.
type Registry struct {
	mu           sync.RWMutex
	byLang       map[string]Extractor
	parseTimeout time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithParseTimeout bounds how long the tree-sitter front-end may spend
// parsing one file. Zero disables the bound.
func WithParseTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.parseTimeout = d
	}
}

// NewRegistry returns a Registry with the tree-sitter front-end registered
// for every language that has both a grammar and a rule table.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byLang:       make(map[string]Extractor),
		parseTimeout: DefaultParseTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, lang := range Languages() {
		rules, ok := rulesFor(lang)
		if !ok {
			continue
		}
		r.byLang[lang] = &TreeSitterExtractor{
			language: lang,
			rules:    rules,
			timeout:  r.parseTimeout,
		}
	}
	return r
}

// Register routes lang to ex, replacing any existing extractor.
func (r *Registry) Register(lang string, ex Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[lang] = ex
}

// ForLanguage returns the extractor routed for lang.
func (r *Registry) ForLanguage(lang string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.byLang[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return ex, nil
}

// Supports reports whether lang has an extractor.
func (r *Registry) Supports(lang string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byLang[lang]
	return ok
}

// Languages lists the routed language tags, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLang))
	for lang := range r.byLang {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
