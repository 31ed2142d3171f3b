// Package native executes point-cloud pipelines in process.
//
// It understands the subset of stages the quality pipeline emits:
// readers.text, filters.crop (polygon WKT or bounds, optionally
// outside), writers.gdal with output_type=count and writers.text.
// Clouds are delimited XYZ text files; LAS-family files require the
// PDAL engine. Count rasters are written through a driven.RasterEngine.
package native
