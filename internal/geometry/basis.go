package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateBasis is returned when the reference points of a Basis are
// collinear (or coincide) and no affine map can be fitted through them.
var ErrDegenerateBasis = errors.New("basis reference points are collinear")

// Basis is an affine change of basis. The origin reference point maps to
// (0, 0), bottomLeft to (0, 1) and bottomRight to (1, 1).
//
// The forward map is p' = M·p + t with M a full 2x2 matrix, so the basis
// absorbs rotation, non-uniform scale, shear and translation. The inverse of
// M is computed once at construction.
type Basis struct {
	m    *mat.Dense
	mInv *mat.Dense
	t    Point
}

// NewBasis fits the affine map through the three reference points.
func NewBasis(origin, bottomLeft, bottomRight Point) (*Basis, error) {
	u := bottomLeft.Sub(origin)
	v := bottomRight.Sub(origin)
	cross := u.X*v.Y - u.Y*v.X
	scale := math.Max(u.X*u.X+u.Y*u.Y, v.X*v.X+v.Y*v.Y)
	if scale == 0 || math.Abs(cross) <= 1e-12*scale {
		return nil, ErrDegenerateBasis
	}

	src := [3]Point{origin, bottomLeft, bottomRight}
	dst := [3]Point{{0, 0}, {0, 1}, {1, 1}}

	// [x', y'] = [a, b, tx; c, d, ty] * [x, y, 1]
	a := mat.NewDense(6, 6, nil)
	b := mat.NewVecDense(6, nil)
	for i := 0; i < 3; i++ {
		a.Set(i*2, 0, src[i].X)
		a.Set(i*2, 1, src[i].Y)
		a.Set(i*2, 2, 1)
		b.SetVec(i*2, dst[i].X)

		a.Set(i*2+1, 3, src[i].X)
		a.Set(i*2+1, 4, src[i].Y)
		a.Set(i*2+1, 5, 1)
		b.SetVec(i*2+1, dst[i].Y)
	}

	var params mat.VecDense
	if err := params.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateBasis, err)
	}

	m := mat.NewDense(2, 2, []float64{
		params.AtVec(0), params.AtVec(1),
		params.AtVec(3), params.AtVec(4),
	})
	var mInv mat.Dense
	if err := mInv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateBasis, err)
	}

	return &Basis{
		m:    m,
		mInv: &mInv,
		t:    Point{X: params.AtVec(2), Y: params.AtVec(5)},
	}, nil
}

// ToBasis maps a pixel-space point into the basis.
func (b *Basis) ToBasis(p Point) Point {
	return Point{
		X: b.m.At(0, 0)*p.X + b.m.At(0, 1)*p.Y + b.t.X,
		Y: b.m.At(1, 0)*p.X + b.m.At(1, 1)*p.Y + b.t.Y,
	}
}

// FromBasis maps a basis-space point back to pixel space.
func (b *Basis) FromBasis(p Point) Point {
	q := p.Sub(b.t)
	return Point{
		X: b.mInv.At(0, 0)*q.X + b.mInv.At(0, 1)*q.Y,
		Y: b.mInv.At(1, 0)*q.X + b.mInv.At(1, 1)*q.Y,
	}
}

// PolyToBasis maps every vertex of poly into the basis.
func (b *Basis) PolyToBasis(poly Polygon) Polygon {
	out := make(Polygon, len(poly))
	for i, p := range poly {
		out[i] = b.ToBasis(p)
	}
	return out
}

// PolyFromBasis maps every vertex of poly back to pixel space.
func (b *Basis) PolyFromBasis(poly Polygon) Polygon {
	out := make(Polygon, len(poly))
	for i, p := range poly {
		out[i] = b.FromBasis(p)
	}
	return out
}
