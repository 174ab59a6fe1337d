// Package grid addresses the bubble cells of a registered sheet.
//
// A Grid is built from the four document corners found by the corner
// locator. It divides the sheet into a fixed number of columns and rows and
// maps any (column, row) cell address to a region of the image, which a
// Sampler turns into a fill ratio. Fields and field groups built from a form
// layout read and decode runs of cells.
//
// A Grid holds a read-only reference to its sampler and nothing else that
// outlives the sheet being read.
package grid

import (
	"fmt"
	"math"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

// Mask selects the part of a cell that is sampled.
type Mask int

const (
	// MaskCircle samples a disc centred in the cell. The disc scales with the
	// cell, so ratios stay comparable across the sheet.
	MaskCircle Mask = iota

	// MaskRect samples the cropped cell shape.
	MaskRect
)

func (m Mask) String() string {
	if m == MaskRect {
		return "rect"
	}
	return "circle"
}

// ParseMask parses "circle" or "rect".
func ParseMask(s string) (Mask, error) {
	switch s {
	case "", "circle":
		return MaskCircle, nil
	case "rect", "rectangle":
		return MaskRect, nil
	}
	return MaskCircle, fmt.Errorf("unknown mask %q", s)
}

// Options tune how cells are sampled.
type Options struct {
	// CellCrop is the fraction of a cell's width and height removed (half
	// from each side) by CroppedCellShape.
	CellCrop float64

	// MaskCrop is the fraction of the cell's mean dimension left outside the
	// circular mask.
	MaskCrop float64

	Mask Mask
}

// DefaultOptions are the sampling options used for printed sheets.
var DefaultOptions = Options{CellCrop: 0.4, MaskCrop: 0.25, Mask: MaskCircle}

// Validate checks that both crop fractions lie in [0, 1) and the mask is known.
func (o Options) Validate() error {
	if o.CellCrop < 0 || o.CellCrop >= 1 {
		return fmt.Errorf("cell crop fraction must be in [0, 1), got %v", o.CellCrop)
	}
	if o.MaskCrop < 0 || o.MaskCrop >= 1 {
		return fmt.Errorf("mask crop fraction must be in [0, 1), got %v", o.MaskCrop)
	}
	if o.Mask != MaskCircle && o.Mask != MaskRect {
		return fmt.Errorf("unknown mask %d", int(o.Mask))
	}
	return nil
}

// Region is the pixel-space area sampled for one cell.
type Region struct {
	Col, Row int

	// Shape is the cell outline, cropped when the rectangular mask is used.
	Shape geometry.Polygon

	Center geometry.Point

	// Radius is the circular mask radius in pixels. Zero means the whole
	// Shape is sampled.
	Radius float64
}

// Bounds returns the pixel bounding box of the sampled area.
func (r Region) Bounds() (min, max geometry.Point) {
	if r.Radius > 0 {
		d := geometry.Pt(r.Radius, r.Radius)
		return r.Center.Sub(d), r.Center.Add(d)
	}
	return r.Shape.Bounds()
}

// Contains reports whether p falls inside the sampled area.
func (r Region) Contains(p geometry.Point) bool {
	if r.Radius > 0 {
		return r.Center.Distance(p) <= r.Radius
	}
	return r.Shape.Contains(p)
}

// Sampler measures how dark a region of the image is, from 0 (background)
// to 1 (fully marked).
type Sampler interface {
	SampleDarkness(Region) float64
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(Region) float64

// SampleDarkness calls f(r).
func (f SamplerFunc) SampleDarkness(r Region) float64 { return f(r) }

// Grid maps cell addresses on a registered sheet to pixel regions.
type Grid struct {
	corners geometry.Polygon
	cols    int
	rows    int
	basis   *geometry.Basis
	sampler Sampler
	opts    Options
}

// New returns a grid of cols x rows cells spanning corners, which must be the
// document corners clockwise from top-left. sampler may be nil when only cell
// geometry is needed; FillRatio then reports 0.
func New(corners geometry.Polygon, cols, rows int, sampler Sampler, opts Options) (*Grid, error) {
	if len(corners) != 4 {
		return nil, fmt.Errorf("grid needs 4 corners, got %d", len(corners))
	}
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("grid needs positive dimensions, got %dx%d", cols, rows)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	basis, err := geometry.NewBasis(corners[0], corners[3], corners[2])
	if err != nil {
		return nil, fmt.Errorf("grid corners: %w", err)
	}

	return &Grid{
		corners: append(geometry.Polygon(nil), corners...),
		cols:    cols,
		rows:    rows,
		basis:   basis,
		sampler: sampler,
		opts:    opts,
	}, nil
}

func (g *Grid) Columns() int { return g.cols }
func (g *Grid) Rows() int    { return g.rows }

// Corners returns a copy of the document corners.
func (g *Grid) Corners() geometry.Polygon {
	return append(geometry.Polygon(nil), g.corners...)
}

// Basis returns the sheet basis: (0, 0) at the top-left corner and (1, 1) at
// the bottom-right.
func (g *Grid) Basis() *geometry.Basis { return g.basis }

func (g *Grid) cellInBasis(col, row int) (geometry.Point, geometry.Point) {
	w := 1 / float64(g.cols)
	h := 1 / float64(g.rows)
	return geometry.Pt(float64(col)*w, float64(row)*h),
		geometry.Pt(float64(col+1)*w, float64(row+1)*h)
}

func rect(tl, br geometry.Point) geometry.Polygon {
	return geometry.Polygon{tl, {X: br.X, Y: tl.Y}, br, {X: tl.X, Y: br.Y}}
}

// CellShape returns the pixel-space outline of cell (col, row), clockwise
// from its top-left corner. Neighbouring cells share their edges exactly.
func (g *Grid) CellShape(col, row int) geometry.Polygon {
	return g.basis.PolyFromBasis(rect(g.cellInBasis(col, row)))
}

// CroppedCellShape is CellShape shrunk by the CellCrop fraction about the
// cell centre.
func (g *Grid) CroppedCellShape(col, row int) geometry.Polygon {
	tl, br := g.cellInBasis(col, row)
	tl, br = geometry.CropRect(tl, br, g.opts.CellCrop)
	return g.basis.PolyFromBasis(rect(tl, br))
}

// CellRange returns the pixel bounding box of cell (col, row).
func (g *Grid) CellRange(col, row int) (min, max geometry.Point) {
	return g.CellShape(col, row).Bounds()
}

// CellCenter returns the centre of the cell's bounding box.
func (g *Grid) CellCenter(col, row int) geometry.Point {
	return g.CellShape(col, row).GuessCentroid()
}

// CellCircle returns the centre and radius of the circular mask for a cell.
// A cell that is not square on the image uses its mean dimension.
func (g *Grid) CellCircle(col, row int) (geometry.Point, float64) {
	min, max := g.CellRange(col, row)
	mean := ((max.X - min.X) + (max.Y - min.Y)) / 2
	diameter := mean * (1 - g.opts.MaskCrop)
	return geometry.Pt((min.X+max.X)/2, (min.Y+max.Y)/2), diameter / 2
}

// Region returns the area sampled for cell (col, row).
func (g *Grid) Region(col, row int) Region {
	r := Region{Col: col, Row: row}
	switch g.opts.Mask {
	case MaskRect:
		r.Shape = g.CroppedCellShape(col, row)
		r.Center = r.Shape.GuessCentroid()
	default:
		r.Shape = g.CellShape(col, row)
		r.Center, r.Radius = g.CellCircle(col, row)
	}
	return r
}

// FillRatio samples cell (col, row). The result is clamped to [0, 1]; NaN
// and a missing sampler both read as 0.
func (g *Grid) FillRatio(col, row int) float64 {
	if g.sampler == nil {
		return 0
	}
	v := g.sampler.SampleDarkness(g.Region(col, row))
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
