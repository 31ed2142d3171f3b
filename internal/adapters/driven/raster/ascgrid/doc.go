// Package ascgrid is a pure-Go raster engine over ESRI ASCII grids.
//
// It reads and writes single-band .asc files (with an optional .prj
// sidecar holding the SRS), computes band statistics and evaluates
// cell-wise algebra expressions in memory. It is selected when GDAL is
// not installed and backs the end-to-end tests.
package ascgrid
