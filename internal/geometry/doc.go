// Package geometry traces binary masks into footprint polygons and
// converts them to and from orb geometries and WKT.
//
// Polygons follow the domain convention: the outer ring winds
// counter-clockwise and holes wind clockwise in ground coordinates.
// Regions are 4-connected; diagonal neighbours of different regions
// never share a ring.
package geometry
