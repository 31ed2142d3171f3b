package driven

import "github.com/custodia-labs/lidarqc/internal/core/domain"

// FootprintCodec reads and writes footprints in one vector format.
// Every feature carries a single integer attribute value = 1.
type FootprintCodec interface {
	// Format is the configuration name, e.g. "geojson".
	Format() string

	// Extension is the file extension including the dot.
	Extension() string

	// Write stores the footprint polygons, replacing any existing file.
	Write(path string, fp *domain.Footprint) error

	// Read loads polygons written by Write.
	Read(path string) (*domain.Footprint, error)
}

// FootprintCodecs looks up codecs by format name or file extension.
type FootprintCodecs interface {
	// Get returns the codec for a format name.
	// Returns domain.ErrUnsupportedFormat for unknown formats.
	Get(format string) (FootprintCodec, error)

	// ForPath returns the codec whose extension matches path.
	ForPath(path string) (FootprintCodec, error)
}
