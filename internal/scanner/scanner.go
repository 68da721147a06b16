package scanner

import (
	"fmt"
	"sort"
	"strings"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

// Strategy is a named extraction implementation (CSS selectors, JSON-LD, etc.).
type Strategy interface {
	ports.Extractor
	Name() string
	// Validate rejects rulesets the strategy cannot apply.
	Validate(ruleset domain.Ruleset) error
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry preloaded with the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: map[string]Strategy{}}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("extractor %s is not registered (available: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
