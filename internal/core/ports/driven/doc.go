// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - PointCloudEngine: Executes declarative point-cloud pipelines (PDAL or native)
//   - RasterEngine: Raster I/O, statistics and cell-wise algebra (GDAL or native)
//   - MaskStrategy: Thresholds a density raster into a binary mask
//   - FootprintCodec: Serialises footprints to vector container formats
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PreviewRenderer: PNG previews of density rasters and masks
//   - RunStore: Run history persistence. Without it, only JSON sidecars are written.
//   - DerivativeGenerator: Regeneration is skipped for types without a generator.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
