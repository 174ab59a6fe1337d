// Package corners locates the four document corners of a bubble sheet among
// the polygons found in a prepared image.
//
// The search is hypothesis driven. Every hexagon that classifies as an L-mark
// fixes a provisional sheet coordinate system, and the three square marks are
// then looked for only inside small windows around where the layout says they
// must be. The first L-mark hypothesis that finds a square in every window
// wins.
package corners

import (
	"fmt"
	"math"

	"github.com/ironsheep/bubblescan/internal/form"
	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/marks"
)

// CornerFindingError reports that no valid registration was found. It is the
// per-sheet rejection signal; callers should skip the sheet and continue.
type CornerFindingError struct {
	Hexagons       int
	LMarks         int
	Quadrilaterals int
}

func (e *CornerFindingError) Error() string {
	return fmt.Sprintf("could not find sheet corners: %d hexagons (%d valid L-marks), %d quadrilaterals",
		e.Hexagons, e.LMarks, e.Quadrilaterals)
}

// Window is the acceptance area for one square mark, in L-mark basis space.
type Window struct {
	Corner  geometry.Corner
	Nominal geometry.Point

	// HalfSize is the distance from Nominal to the window edges on each axis.
	HalfSize geometry.Point

	Region geometry.Region
}

// Bounds returns the window's corners in basis space.
func (w Window) Bounds() (min, max geometry.Point) {
	return w.Nominal.Sub(w.HalfSize), w.Nominal.Add(w.HalfSize)
}

// Contains reports whether a basis-space point falls inside the window.
func (w Window) Contains(p geometry.Point) bool {
	return w.Region.Contains(p)
}

// Registration is a successful corner search.
type Registration struct {
	// Corners are TL, TR, BR, BL in pixel space.
	Corners [4]geometry.Point

	LMark   *marks.LMark
	Squares [3]*marks.SquareMark
	Basis   *geometry.Basis
	Windows []Window
}

// Polygon returns the corners as a clockwise polygon starting top-left.
func (r *Registration) Polygon() geometry.Polygon {
	return geometry.Polygon{r.Corners[0], r.Corners[1], r.Corners[2], r.Corners[3]}
}

// Mark returns the polygon of the registration mark at corner c: the L-mark
// for TopLeft, otherwise the square found in that corner's window.
func (r *Registration) Mark(c geometry.Corner) geometry.Polygon {
	if c == geometry.TopLeft {
		return r.LMark.Polygon
	}
	for i, w := range r.Windows {
		if w.Corner == c && r.Squares[i] != nil {
			return r.Squares[i].Polygon
		}
	}
	return nil
}

// Locator searches polygon lists for a sheet registration. A Locator holds
// only the immutable layout and is safe for concurrent use.
type Locator struct {
	layout  form.Layout
	windows []Window
}

// NewLocator returns a locator for sheets printed with layout.
func NewLocator(layout form.Layout) (*Locator, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Locator{layout: layout, windows: buildWindows(layout)}, nil
}

// Windows returns the acceptance windows in L-mark basis space, in the order
// TR, BL, BR.
func (l *Locator) Windows() []Window {
	out := make([]Window, len(l.windows))
	copy(out, l.windows)
	return out
}

// The L-mark basis maps the outer corner to (0, 0) and the ends of the
// vertical arm to (0, 1) and (1, 1). One basis x unit is therefore one
// L-mark unit, and one basis y unit is two. Square centres sit half a unit in
// from the sheet's outer edges.
func buildWindows(layout form.Layout) []Window {
	right := layout.WidthUnits - 0.5
	bottom := (layout.HeightUnits - 0.5) / 2
	top := 0.25
	left := 0.5

	halfW := layout.WindowTolerance * right
	halfH := layout.WindowTolerance * bottom

	window := func(c geometry.Corner, center geometry.Point) Window {
		return Window{
			Corner:   c,
			Nominal:  center,
			HalfSize: geometry.Pt(halfW, halfH),
			Region: geometry.Region{
				{Line: vertical(center.X - halfW), Op: geometry.GreaterOrEqual},
				{Line: vertical(center.X + halfW), Op: geometry.LessOrEqual},
				{Line: horizontal(center.Y - halfH), Op: geometry.GreaterOrEqual},
				{Line: horizontal(center.Y + halfH), Op: geometry.LessOrEqual},
			},
		}
	}

	return []Window{
		window(geometry.TopRight, geometry.Pt(right, top)),
		window(geometry.BottomLeft, geometry.Pt(left, bottom)),
		window(geometry.BottomRight, geometry.Pt(right, bottom)),
	}
}

func vertical(x float64) geometry.Line {
	return geometry.Line{Slope: math.Inf(1), Point: geometry.Pt(x, 0)}
}

func horizontal(y float64) geometry.Line {
	return geometry.Line{Slope: 0, Point: geometry.Pt(0, y)}
}

// Find searches polygons for one L-mark and three square marks in the
// expected layout. The input slice and its polygons are not modified.
//
// When several squares fall inside the same window, the one whose centroid
// is closest to the window's nominal position is used.
func (l *Locator) Find(polygons []geometry.Polygon) (*Registration, error) {
	var hexagons, quads []geometry.Polygon
	for _, p := range polygons {
		switch len(p) {
		case 6:
			hexagons = append(hexagons, p)
		case 4:
			quads = append(quads, p)
		}
	}

	failure := &CornerFindingError{Hexagons: len(hexagons), Quadrilaterals: len(quads)}
	for _, hex := range hexagons {
		lmark, err := marks.NewLMark(hex)
		if err != nil {
			continue
		}
		failure.LMarks++

		reg, ok := l.tryLMark(lmark, quads)
		if ok {
			return reg, nil
		}
	}
	return nil, failure
}

func (l *Locator) tryLMark(lmark *marks.LMark, quads []geometry.Polygon) (*Registration, bool) {
	poly := lmark.Polygon
	basis, err := geometry.NewBasis(poly[0], poly[5], poly[4])
	if err != nil {
		return nil, false
	}

	var best [3]*marks.SquareMark
	var bestDist [3]float64
	for _, q := range quads {
		square, err := marks.NewSquareMark(q, lmark.UnitLength)
		if err != nil {
			continue
		}
		center := basis.ToBasis(square.Polygon.GuessCentroid())
		for i, w := range l.windows {
			if !w.Contains(center) {
				continue
			}
			d := center.Distance(w.Nominal)
			if best[i] == nil || d < bestDist[i] {
				best[i], bestDist[i] = square, d
			}
		}
	}
	for _, s := range best {
		if s == nil {
			return nil, false
		}
	}

	reg := &Registration{
		LMark:   lmark,
		Squares: best,
		Basis:   basis,
		Windows: l.Windows(),
	}
	reg.Corners[0] = poly[0]
	for i, w := range l.windows {
		p := geometry.CornerInBasis(best[i].Polygon, w.Corner, basis)
		switch w.Corner {
		case geometry.TopRight:
			reg.Corners[1] = p
		case geometry.BottomRight:
			reg.Corners[2] = p
		case geometry.BottomLeft:
			reg.Corners[3] = p
		}
	}
	return reg, true
}
