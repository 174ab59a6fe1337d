package geometry

import (
	"fmt"
	"sort"
)

// Corner names one of the four corners of an axis-aligned square.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "TL"
	case TopRight:
		return "TR"
	case BottomRight:
		return "BR"
	case BottomLeft:
		return "BL"
	}
	return fmt.Sprintf("Corner(%d)", int(c))
}

func (c Corner) right() bool  { return c == TopRight || c == BottomRight }
func (c Corner) bottom() bool { return c == BottomLeft || c == BottomRight }

// Orientation is the direction a run of grid cells extends in.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// ExtremeCorner returns the vertex of a roughly axis-aligned quadrilateral
// that sits at corner c: the two vertices with the highest (right) or lowest
// (left) x form one side, and the one of them with the highest (bottom) or
// lowest (top) y is the corner.
func ExtremeCorner(square Polygon, c Corner) Point {
	idx := make([]int, len(square))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return square[idx[i]].X > square[idx[j]].X
	})

	half := len(square) / 2
	side := idx[:half]
	if !c.right() {
		side = idx[len(idx)-half:]
	}

	best := square[side[0]]
	for _, i := range side[1:] {
		p := square[i]
		if (c.bottom() && p.Y > best.Y) || (!c.bottom() && p.Y < best.Y) {
			best = p
		}
	}
	return best
}

// CornerInBasis finds corner c of square as seen in basis b and returns that
// vertex in pixel space. When the basis rotates the sheet, the vertex
// returned is the one that is "top-right" (etc.) relative to the sheet rather
// than to the image.
func CornerInBasis(square Polygon, c Corner, b *Basis) Point {
	return b.FromBasis(ExtremeCorner(b.PolyToBasis(square), c))
}
