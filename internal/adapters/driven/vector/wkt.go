package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/geometry"
)

// Ensure WKT implements the interface.
var _ driven.FootprintCodec = (*WKT)(nil)

// WKT writes one "<value>;<POLYGON ...>" line per polygon.
type WKT struct{}

// Format returns "wkt".
func (WKT) Format() string { return domain.VectorWKT }

// Extension returns ".wkt".
func (WKT) Extension() string { return ".wkt" }

// Write encodes each polygon on its own line.
func (WKT) Write(path string, fp *domain.Footprint) error {
	var b strings.Builder
	for i, p := range fp.Polygons {
		text, err := geometry.MarshalPolygonWKT(p)
		if err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
		fmt.Fprintf(&b, "1;%s\n", text)
	}
	return writeFile(path, []byte(b.String()))
}

// Read parses lines written by Write. Bare WKT lines are also accepted.
func (WKT) Read(path string) (*domain.Footprint, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	fp := &domain.Footprint{Path: path, Format: domain.VectorWKT}
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, geom, ok := strings.Cut(line, ";"); ok {
			line = geom
		}
		polys, err := geometry.UnmarshalWKT(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n+1, err)
		}
		fp.Polygons = append(fp.Polygons, polys...)
	}
	return finish(fp), nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
