// Package maskmath provides the two mask thresholding strategies.
//
// Array loads the density grid and compares every cell in memory.
// Calc hands the expression "A > threshold" to the raster engine's
// algebra tool and derives coverage from the band mean of the result.
// Both produce mask[c] = 1 exactly when raster[c] > threshold; nodata
// sentinels are compared as ordinary numbers.
package maskmath
