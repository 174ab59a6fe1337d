// Package marks classifies candidate polygons as the registration marks
// printed on a bubble sheet.
//
// Two shapes are recognised. The L-mark sits at the sheet's top-left corner:
// six vertices, all right angles, whose two longest sides are adjacent and
// twice the length of the others. Square marks sit at the other three
// corners. Both classifiers are strict on purpose; a noisy scan yields many
// more candidate polygons than real marks, and every candidate that slips
// through costs a full corner search.
package marks

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

const (
	// AngleTolerance is the relative tolerance of every corner against a right angle.
	AngleTolerance = 0.15

	// LMarkUnitTolerance bounds how far the L-mark's unit lengths (with the two
	// long sides halved) may stray from their mean.
	LMarkUnitTolerance = 0.15

	// SquareSideTolerance bounds how far a square mark's sides may stray from
	// their mean, or from the target unit length when one is given.
	SquareSideTolerance = 0.10
)

// ShapeError reports that a polygon failed one of a classifier's invariants.
type ShapeError struct {
	Shape  string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("not a valid %s: %s", e.Shape, e.Reason)
}

func shapeErr(shape, format string, args ...interface{}) error {
	return &ShapeError{Shape: shape, Reason: fmt.Sprintf(format, args...)}
}

// LMark is a validated L-shaped registration mark.
type LMark struct {
	// Polygon holds the six vertices clockwise, starting with the vertex
	// shared by the two longest sides (the sheet's outer corner).
	Polygon geometry.Polygon

	// UnitLength is the mean length of the four short sides: the printed
	// width of the mark's arms.
	UnitLength float64
}

// NewLMark validates polygon as an L-mark. It returns a *ShapeError when the
// polygon does not qualify.
func NewLMark(polygon geometry.Polygon) (*LMark, error) {
	const shape = "L-mark"

	if len(polygon) != 6 {
		return nil, shapeErr(shape, "has %d vertices, want 6", len(polygon))
	}
	if !polygon.AllApproxSquare(AngleTolerance) {
		return nil, shapeErr(shape, "corners are not square")
	}

	cw := polygon.Clockwise()
	sides := cw.SideLengths()
	first, second := twoLongest(sides)
	if !cw.Adjacent(first, second) {
		return nil, shapeErr(shape, "longest sides %d and %d are not adjacent", first, second)
	}

	units := make([]float64, 0, len(sides))
	short := make([]float64, 0, len(sides)-2)
	for i, l := range sides {
		if i == first || i == second {
			units = append(units, l/2)
			continue
		}
		units = append(units, l)
		short = append(short, l)
	}
	if !geometry.AllApproxEqual(units, nil, LMarkUnitTolerance) {
		return nil, shapeErr(shape, "longest sides are not twice the length of the others")
	}

	// Edge i runs from vertex i to vertex i+1, so two adjacent edges share
	// the vertex at the start of the later one.
	shared := second
	if cw.Next(second) == first {
		shared = first
	}

	return &LMark{
		Polygon:    cw.RotateTo(shared),
		UnitLength: stat.Mean(short, nil),
	}, nil
}

// SquareMark is a validated square registration mark.
type SquareMark struct {
	// Polygon holds the four vertices clockwise, starting with the input's
	// first vertex.
	Polygon geometry.Polygon

	// UnitLength is the mean side length.
	UnitLength float64
}

// NewSquareMark validates polygon as a square mark. When targetUnitLength is
// positive every side must also be approximately that long; pass 0 to only
// require the sides to agree with each other.
func NewSquareMark(polygon geometry.Polygon, targetUnitLength float64) (*SquareMark, error) {
	const shape = "square mark"

	if len(polygon) != 4 {
		return nil, shapeErr(shape, "has %d vertices, want 4", len(polygon))
	}
	if !polygon.AllApproxSquare(AngleTolerance) {
		return nil, shapeErr(shape, "corners are not square")
	}

	sides := polygon.SideLengths()
	var target *float64
	if targetUnitLength > 0 {
		target = &targetUnitLength
	}
	if !geometry.AllApproxEqual(sides, target, SquareSideTolerance) {
		if target != nil {
			return nil, shapeErr(shape, "sides are not close to %.2f", targetUnitLength)
		}
		return nil, shapeErr(shape, "sides are not equal")
	}

	return &SquareMark{
		Polygon:    polygon.Clockwise(),
		UnitLength: stat.Mean(sides, nil),
	}, nil
}

// twoLongest returns the indexes of the longest and second longest values.
// Ties keep the lower index first.
func twoLongest(values []float64) (int, int) {
	first, second := -1, -1
	for i, v := range values {
		switch {
		case first < 0 || v > values[first]:
			second = first
			first = i
		case second < 0 || v > values[second]:
			second = i
		}
	}
	return first, second
}
