package driven

import "github.com/custodia-labs/lidarqc/internal/core/domain"

// PreviewKind selects the colour ramp of a preview.
type PreviewKind string

// Preview kinds.
const (
	PreviewDensity PreviewKind = "density"
	PreviewMask    PreviewKind = "mask"
)

// PreviewRenderer converts a grid into a visual image.
type PreviewRenderer interface {
	// Render writes a PNG of band 1 to path.
	Render(path string, g *domain.Grid, kind PreviewKind) error
}
