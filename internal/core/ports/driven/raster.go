package driven

import (
	"context"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// RasterCapabilities advertises which operations an engine supports natively.
type RasterCapabilities struct {
	// PixelAccess means Read and Write operate on in-memory grids.
	PixelAccess bool

	// Algebra means Calc evaluates cell-wise expressions.
	Algebra bool
}

// CalcRequest describes a cell-wise algebra expression.
// Inputs map single upper-case letters to raster paths.
type CalcRequest struct {
	Expression string
	Inputs     map[string]string
	Output     string

	// DataType of the output cells; empty keeps the engine default.
	DataType string

	// NoData of the output; nil writes no sentinel.
	NoData *float64

	// AllBands evaluates the expression for every band of input A.
	AllBands bool
}

// RasterEngine opens, describes, writes and transforms rasters.
type RasterEngine interface {
	// Name identifies the engine in logs and metadata.
	Name() string

	// Capabilities reports which operations are available.
	Capabilities() RasterCapabilities

	// DefaultExtension is the extension used for rasters this engine writes.
	DefaultExtension() string

	// Info describes a raster, including band 1 statistics.
	// Returns domain.ErrInputNotFound if the file does not exist.
	Info(ctx context.Context, path string) (*domain.RasterInfo, error)

	// Read loads all bands into memory.
	Read(ctx context.Context, path string) (*domain.Grid, error)

	// Write stores a grid, creating parent directories.
	Write(ctx context.Context, path string, g *domain.Grid) error

	// Calc evaluates an expression and writes the result.
	Calc(ctx context.Context, req CalcRequest) error
}
