package geometry

import (
	"fmt"
	"math"
)

// Line is a line in point-slope form. Vertical lines have Slope == +Inf.
type Line struct {
	Slope float64
	Point Point
}

// LineFromPoints returns the line through a and b.
func LineFromPoints(a, b Point) Line {
	run := a.X - b.X
	if run == 0 {
		return Line{Slope: math.Inf(1), Point: a}
	}
	return Line{Slope: (a.Y - b.Y) / run, Point: a}
}

// Vertical reports whether the line is vertical.
func (l Line) Vertical() bool {
	return math.IsInf(l.Slope, 0)
}

// At returns the y value of the line at x. It returns NaN for vertical lines,
// which have no single y for a given x.
func (l Line) At(x float64) float64 {
	if l.Vertical() {
		return math.NaN()
	}
	return l.Slope*(x-l.Point.X) + l.Point.Y
}

// Rotate returns the line whose direction is rotated theta radians
// counter-clockwise and which passes through through, or through l.Point when
// through is nil. It is not a rotation about through unless through already
// lies on l.
func (l Line) Rotate(theta float64, through *Point) Line {
	p := l.Point
	if through != nil {
		p = *through
	}
	angle := math.Atan(l.Slope) + theta
	// tan is unbounded at ±π/2; snap to a true vertical there.
	if math.Abs(math.Cos(angle)) < 1e-12 {
		return Line{Slope: math.Inf(1), Point: p}
	}
	slope := math.Tan(angle)
	if math.Abs(slope) < 1e-12 {
		slope = 0
	}
	return Line{Slope: slope, Point: p}
}

// Perpendicular returns the perpendicular line through through (or l.Point).
func (l Line) Perpendicular(through *Point) Line {
	return l.Rotate(math.Pi/2, through)
}

// Offset returns the parallel line passing through p.
func (l Line) Offset(p Point) Line {
	return Line{Slope: l.Slope, Point: p}
}

// AngleBetween returns the absolute angle between the directions of a and b.
func AngleBetween(a, b Line) float64 {
	return math.Abs(math.Atan(a.Slope) - math.Atan(b.Slope))
}

// Inequality is the comparison used by an InequalityLine.
type Inequality int

const (
	GreaterThan Inequality = iota
	GreaterOrEqual
	LessThan
	LessOrEqual
	NotEqual
)

func (i Inequality) String() string {
	switch i {
	case GreaterThan:
		return ">"
	case GreaterOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessOrEqual:
		return "<="
	case NotEqual:
		return "!="
	}
	return fmt.Sprintf("Inequality(%d)", int(i))
}

func (i Inequality) holds(value, bound float64) bool {
	switch i {
	case GreaterThan:
		return value > bound
	case GreaterOrEqual:
		return value >= bound
	case LessThan:
		return value < bound
	case LessOrEqual:
		return value <= bound
	case NotEqual:
		return value != bound
	}
	return false
}

// InequalityLine is a half-plane: the points whose y compares to the line's y
// at the same x as Op says. For a vertical line the comparison is made on x
// instead, so "greater" means to the right of the line.
type InequalityLine struct {
	Line Line
	Op   Inequality
}

// Satisfied reports whether p lies in the half-plane.
func (il InequalityLine) Satisfied(p Point) bool {
	if il.Line.Vertical() {
		return il.Op.holds(p.X, il.Line.Point.X)
	}
	return il.Op.holds(p.Y, il.Line.At(p.X))
}

// Region is the intersection of a set of half-planes.
type Region []InequalityLine

// Contains reports whether p satisfies every inequality in the region.
func (r Region) Contains(p Point) bool {
	for _, il := range r {
		if !il.Satisfied(p) {
			return false
		}
	}
	return true
}
