// Package vector serialises footprints to GeoJSON, ESRI Shapefile and
// WKT. Every format encodes the same polygons and one integer attribute
// value = 1 per feature.
package vector
