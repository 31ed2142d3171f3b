package vector

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.FootprintCodecs = (*Registry)(nil)

// Registry looks up footprint codecs by format name.
type Registry struct {
	codecs map[string]driven.FootprintCodec
}

// NewRegistry returns a registry holding every built-in codec.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]driven.FootprintCodec)}
	for _, c := range []driven.FootprintCodec{GeoJSON{}, Shapefile{}, WKT{}} {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c driven.FootprintCodec) {
	r.codecs[c.Format()] = c
}

// Get returns the codec for a format name.
func (r *Registry) Get(format string) (driven.FootprintCodec, error) {
	c, ok := r.codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: vector format %q", domain.ErrUnsupportedFormat, format)
	}
	return c, nil
}

// ForPath returns the codec whose extension matches the file.
func (r *Registry) ForPath(path string) (driven.FootprintCodec, error) {
	for _, c := range r.codecs {
		if hasExt(path, c.Extension()) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no vector codec for %s", domain.ErrUnsupportedFormat, path)
}

// Formats lists registered format names in sorted order.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
