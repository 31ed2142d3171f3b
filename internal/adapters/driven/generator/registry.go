package generator

import (
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/process"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.GeneratorRegistry = (*Registry)(nil)

// Registry holds one generator per derivative type.
type Registry struct {
	generators map[domain.RasterType]driven.DerivativeGenerator
}

// NewRegistry builds command generators from configuration.
// Keys are case-insensitive raster type names.
func NewRegistry(cfg map[string]domain.GeneratorSettings, runner process.Runner) (*Registry, error) {
	r := &Registry{generators: make(map[domain.RasterType]driven.DerivativeGenerator, len(cfg))}
	for name, gc := range cfg {
		t, err := domain.ParseRasterType(name)
		if err != nil {
			return nil, err
		}
		g, err := NewCommand(t, gc, runner)
		if err != nil {
			return nil, err
		}
		r.generators[t] = g
	}
	return r, nil
}

// Register adds or replaces a generator.
func (r *Registry) Register(g driven.DerivativeGenerator) {
	r.generators[g.Type()] = g
}

// Get returns the generator for a type.
func (r *Registry) Get(t domain.RasterType) (driven.DerivativeGenerator, bool) {
	g, ok := r.generators[t]
	return g, ok
}

// Types lists registered types with DTM first.
func (r *Registry) Types() []domain.RasterType {
	types := make([]domain.RasterType, 0, len(r.generators))
	for t := range r.generators {
		types = append(types, t)
	}
	return domain.SortRasterTypes(types)
}
