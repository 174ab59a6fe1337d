package geometry

import (
	"math"
)

// Polygon is an implicitly closed sequence of vertices; the last vertex
// connects back to the first.
type Polygon []Point

// Prev returns the index before i, wrapping to the last vertex.
func (p Polygon) Prev(i int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return len(p) - 1
}

// Next returns the index after i, wrapping to the first vertex.
func (p Polygon) Next(i int) int {
	if i+1 < len(p) {
		return i + 1
	}
	return 0
}

// Adjacent reports whether indexes i and j are neighbours in the cyclic
// vertex (or edge) order of p.
func (p Polygon) Adjacent(i, j int) bool {
	return p.Next(i) == j || p.Prev(i) == j
}

// CornerAngles returns the internal angle at every vertex. Element i is the
// angle between vertices i-1, i and i+1.
func (p Polygon) CornerAngles() []float64 {
	angles := make([]float64, len(p))
	for i := range p {
		angles[i] = Angle(p[p.Prev(i)], p[i], p[p.Next(i)])
	}
	return angles
}

// SideLengths returns the length of every edge. Element i is the distance
// from vertex i to vertex i+1.
func (p Polygon) SideLengths() []float64 {
	lengths := make([]float64, len(p))
	for i := range p {
		lengths[i] = p[i].Distance(p[p.Next(i)])
	}
	return lengths
}

// Perimeter returns the sum of the side lengths.
func (p Polygon) Perimeter() float64 {
	var total float64
	for _, l := range p.SideLengths() {
		total += l
	}
	return total
}

// AllApproxSquare reports whether every corner angle is within tolerance
// (relative) of a right angle.
func (p Polygon) AllApproxSquare(tolerance float64) bool {
	right := math.Pi / 2
	return AllApproxEqual(p.CornerAngles(), &right, tolerance)
}

// SignedArea returns the shoelace area. With Y growing downward a positive
// value means the vertices run clockwise on screen.
func (p Polygon) SignedArea() float64 {
	var sum float64
	for i := range p {
		j := p.Next(i)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2
}

// IsClockwise reports whether the polygon runs clockwise on screen. The
// polygon is assumed simple.
func (p Polygon) IsClockwise() bool {
	return p.SignedArea() >= 0
}

// Clockwise returns a clockwise copy of p. Vertex 0 stays first; when the
// order has to be reversed the remaining vertices are reversed behind it.
func (p Polygon) Clockwise() Polygon {
	out := make(Polygon, len(p))
	if p.IsClockwise() || len(p) == 0 {
		copy(out, p)
		return out
	}
	out[0] = p[0]
	for i := 1; i < len(p); i++ {
		out[i] = p[len(p)-i]
	}
	return out
}

// RotateTo returns a copy of p whose vertex 0 is p[first], preserving order.
func (p Polygon) RotateTo(first int) Polygon {
	out := make(Polygon, 0, len(p))
	out = append(out, p[first:]...)
	return append(out, p[:first]...)
}

// Bounds returns the minimum and maximum coordinates of the vertices.
func (p Polygon) Bounds() (min, max Point) {
	if len(p) == 0 {
		return Point{}, Point{}
	}
	min, max = p[0], p[0]
	for _, v := range p[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return min, max
}

// GuessCentroid returns the center of the bounding box. It is a good
// approximation for squares and cheap enough to run on every candidate.
func (p Polygon) GuessCentroid() Point {
	min, max := p.Bounds()
	return Point{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2}
}

// Contains reports whether pt lies inside or on the edge of a convex polygon.
func (p Polygon) Contains(pt Point) bool {
	if len(p) < 3 {
		return false
	}
	var sign float64
	for i := range p {
		a, b := p[i], p[p.Next(i)]
		cross := (b.X-a.X)*(pt.Y-a.Y) - (b.Y-a.Y)*(pt.X-a.X)
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}
