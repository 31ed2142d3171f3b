// Package domain defines the core entities of the lidar quality pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - PointCloudFile: An immutable input cloud identified by path
//   - Grid: A georeferenced raster held in memory
//   - DensityRaster: Per-cell point counts with cached statistics
//   - BinaryMask: A 0/1 validity grid derived from a density raster
//   - Footprint: Polygons tracing the valid regions of a mask
//   - CroppedPointCloud: A cloud filtered against a footprint or box
//   - RunMetadata: The append-only record of one pipeline run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
