package harvest

import (
	"context"
	"fmt"
	"sort"

	"ArticlesPipeline/internal/domain"
)

// Request carries the configured source a harvester should walk.
type Request struct {
	SourceName string
	URL        string
	Query      string
	Pattern    string
	Options    map[string]string
}

// Option returns a request option or the fallback when unset.
func (r Request) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Harvester captures a single link-discovery strategy (RSS, e-mail digest, sheet).
type Harvester interface {
	Name() string
	Harvest(ctx context.Context, req Request) ([]domain.Link, error)
}

// Registry keeps a mapping from harvester names to their implementations.
type Registry struct {
	harvesters map[string]Harvester
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{harvesters: map[string]Harvester{}}
}

// Register adds or replaces a harvester implementation.
func (r *Registry) Register(h Harvester) {
	if r.harvesters == nil {
		r.harvesters = map[string]Harvester{}
	}
	r.harvesters[h.Name()] = h
}

// Resolve returns a harvester by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Harvester, error) {
	if h, ok := r.harvesters[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("harvester %s is not registered", name)
}

// Names lists registered harvesters in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.harvesters))
	for name := range r.harvesters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
