package geometry

import (
	"fmt"
	"math"
)

// Point is a 2D point in pixel or basis coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// ApproxEqual reports whether p and q are within eps of each other on both axes.
func (p Point) ApproxEqual(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

func (p Point) String() string {
	return fmt.Sprintf("(%.2f,%.2f)", p.X, p.Y)
}

// Angle returns the internal angle at shared formed by the rays to endA and
// endB, in the range [0, π].
//
// The angle is computed with the law of cosines. The cosine is rounded to four
// decimal places and clamped so floating point noise never leaves the domain
// of acos. A degenerate ray (zero length) yields 0.
func Angle(endA, shared, endB Point) float64 {
	magA := shared.Distance(endA)
	magB := shared.Distance(endB)
	if magA == 0 || magB == 0 {
		return 0
	}
	distAB := endA.Distance(endB)
	cosine := (magA*magA + magB*magB - distAB*distAB) / (2 * magA * magB)
	cosine = math.Round(cosine*1e4) / 1e4
	cosine = math.Max(-1, math.Min(1, cosine))
	return math.Abs(math.Acos(cosine))
}

// ExtendRay returns the point that is distance away from b, continuing in the
// direction a->b.
func ExtendRay(a, b Point, distance float64) Point {
	theta := math.Atan2(b.Y-a.Y, b.X-a.X)
	return Point{
		X: b.X + math.Cos(theta)*distance,
		Y: b.Y + math.Sin(theta)*distance,
	}
}

// CropRect shrinks the axis-aligned rectangle (topLeft, bottomRight) by
// fraction of its width and height, keeping the center.
func CropRect(topLeft, bottomRight Point, fraction float64) (Point, Point) {
	dx := fraction * math.Abs(bottomRight.X-topLeft.X) / 2
	dy := fraction * math.Abs(bottomRight.Y-topLeft.Y) / 2
	return Point{X: topLeft.X + dx, Y: topLeft.Y + dy},
		Point{X: bottomRight.X - dx, Y: bottomRight.Y - dy}
}
