// Package detection finds candidate registration-mark polygons in a
// binarized scan.
//
// FindPolygons is the only entry point. It does not classify anything; the
// marks and corners packages decide which of the polygons are registration
// marks. Most polygons it returns are bubbles, printed text and scan noise.
//
// # Pipeline
//
//  1. Components: raster scan and 8-connected flood fill over pixels darker
//     than PolygonOptions.DarkLevel. Components smaller than MinPixels are
//     dropped as speckle.
//  2. Boundary: Moore-neighbour tracing of each component's outer boundary.
//     Holes are not traced, so a printed ring yields one polygon.
//  3. Simplification: closed Douglas-Peucker with a tolerance proportional to
//     the boundary length, so the result does not depend on scan resolution.
//
// # Coordinate System
//
// Vertices are pixel centres in the coordinates of the input image:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Boundaries are walked clockwise on screen.
package detection
