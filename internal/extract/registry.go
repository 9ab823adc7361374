package extract

import (
	"context"
	"strings"
)

// TextStrategy extracts raw text from a downloaded file of one format.
type TextStrategy interface {
	Suffix() string
	ExtractText(ctx context.Context, content []byte) (string, error)
}

// Registry keeps a mapping from lower-case file suffixes to strategies.
type Registry struct {
	strategies map[string]TextStrategy
}

// NewRegistry builds a registry with the given strategies.
func NewRegistry(strategies ...TextStrategy) *Registry {
	r := &Registry{strategies: map[string]TextStrategy{}}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// DefaultRegistry knows .pdf and .docx.
func DefaultRegistry() *Registry {
	return NewRegistry(PDFStrategy{}, DOCXStrategy{})
}

// Register adds or replaces a strategy.
func (r *Registry) Register(strategy TextStrategy) {
	if r.strategies == nil {
		r.strategies = map[string]TextStrategy{}
	}
	r.strategies[strings.ToLower(strategy.Suffix())] = strategy
}

// Resolve returns the strategy for suffix, if any.
func (r *Registry) Resolve(suffix string) (TextStrategy, bool) {
	s, ok := r.strategies[strings.ToLower(suffix)]
	return s, ok
}
