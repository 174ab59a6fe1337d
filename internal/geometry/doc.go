// Package geometry provides the planar geometry used to register a bubble sheet.
//
// The package works in two coordinate systems:
//
//   - Pixel space: the coordinates of the scanned image. Origin (0, 0) at the
//     top-left corner, X increases rightward, Y increases downward.
//   - Basis space: a normalized, sheet-aligned system produced by a Basis.
//     The three reference points used to build the basis map to (0, 0),
//     (0, 1) and (1, 1).
//
// # Orientation
//
// Because Y grows downward, a polygon whose shoelace sum is positive is
// clockwise as seen on screen. Polygon.Clockwise returns a copy in that
// order, keeping vertex 0 in place.
//
// # Lines
//
// Line uses point-slope form. A vertical line has a slope of +Inf and every
// consumer in this package special-cases it instead of evaluating y = f(x).
//
// # Tolerances
//
// Approximate comparisons are relative: a value is approximately equal to a
// target when |value - target| <= tolerance * |target|.
package geometry
