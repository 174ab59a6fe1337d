package detection

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

// PolygonOptions tune FindPolygons.
type PolygonOptions struct {
	// DarkLevel is the gray level below which a pixel is foreground.
	DarkLevel uint8

	// MinPixels is the smallest connected component that is traced.
	// Smaller components are treated as speckle.
	MinPixels int

	// Epsilon is the simplification tolerance as a fraction of the traced
	// boundary's length.
	Epsilon float64
}

// DefaultPolygonOptions work for scans binarized by imaging.Prepare.
var DefaultPolygonOptions = PolygonOptions{DarkLevel: 128, MinPixels: 16, Epsilon: 0.05}

// Validate rejects options under which no mark could ever be traced.
func (o PolygonOptions) Validate() error {
	if o.DarkLevel == 0 {
		return errors.New("dark level must be at least 1")
	}
	if o.MinPixels < 1 {
		return fmt.Errorf("minimum component size must be at least 1 pixel, got %d", o.MinPixels)
	}
	if o.Epsilon <= 0 || o.Epsilon >= 1 {
		return fmt.Errorf("simplification epsilon must be in (0, 1), got %v", o.Epsilon)
	}
	return nil
}

// pixel is an integer image coordinate.
type pixel struct {
	X, Y int
}

// Neighbour offsets in clockwise order on screen, starting west.
var ring = [8]pixel{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func ringIndex(d pixel) int {
	for i, r := range ring {
		if r == d {
			return i
		}
	}
	return -1
}

// binaryImage is a foreground mask with out-of-bounds reads as background.
type binaryImage struct {
	width, height int
	dark          []bool
}

func newBinaryImage(img *image.Gray, level uint8) *binaryImage {
	b := img.Bounds()
	bin := &binaryImage{width: b.Dx(), height: b.Dy(), dark: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < bin.height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+bin.width]
		for x, v := range row {
			bin.dark[y*bin.width+x] = v < level
		}
	}
	return bin
}

func (b *binaryImage) at(p pixel) bool {
	if p.X < 0 || p.Y < 0 || p.X >= b.width || p.Y >= b.height {
		return false
	}
	return b.dark[p.Y*b.width+p.X]
}

// FindPolygons finds the outline of every dark connected component in a
// binarized image and simplifies each one to a polygon.
//
// # Algorithm
//
//  1. Raster scan for foreground pixels not yet assigned to a component.
//  2. Trace the component's outer boundary with Moore-neighbour tracing,
//     stopping when the walk is back at the start pixel about to repeat its
//     first step.
//  3. Flood-fill the component so none of its pixels start another trace.
//  4. Simplify the boundary with closed Douglas-Peucker, using Epsilon times
//     the boundary length as tolerance.
//
// Vertices are pixel centres in image coordinates. Components come out in
// raster order of their top-left pixel, so the result is deterministic.
func FindPolygons(img *image.Gray, opts PolygonOptions) []geometry.Polygon {
	bin := newBinaryImage(img, opts.DarkLevel)
	visited := make([]bool, len(bin.dark))
	origin := img.Bounds().Min

	polygons := make([]geometry.Polygon, 0)
	for y := 0; y < bin.height; y++ {
		for x := 0; x < bin.width; x++ {
			i := y*bin.width + x
			if !bin.dark[i] || visited[i] {
				continue
			}

			start := pixel{x, y}
			size := fillComponent(bin, visited, start)
			if size < opts.MinPixels {
				continue
			}

			boundary := traceBoundary(bin, start)
			poly := simplifyClosed(boundary, opts.Epsilon*perimeter(boundary))
			if len(poly) < 3 {
				continue
			}
			for j := range poly {
				poly[j] = poly[j].Add(geometry.Pt(float64(origin.X), float64(origin.Y)))
			}
			polygons = append(polygons, poly)
		}
	}
	return polygons
}

// fillComponent marks every pixel 8-connected to start as visited and
// returns the component size. Uses an explicit stack so large marks cannot
// overflow the goroutine stack.
func fillComponent(bin *binaryImage, visited []bool, start pixel) int {
	stack := []pixel{start}
	size := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !bin.at(p) {
			continue
		}
		i := p.Y*bin.width + p.X
		if visited[i] {
			continue
		}
		visited[i] = true
		size++

		for _, d := range ring {
			stack = append(stack, pixel{p.X + d.X, p.Y + d.Y})
		}
	}
	return size
}

// traceBoundary walks the outer boundary of the component containing start,
// which must be its first pixel in raster order (so its west neighbour is
// background). The walk is clockwise on screen and ends when it is back at
// start about to repeat its first step.
func traceBoundary(bin *binaryImage, start pixel) []pixel {
	boundary := []pixel{start}

	// step returns the next boundary pixel clockwise from back around cur, and
	// the background pixel examined just before it.
	step := func(cur, back pixel) (pixel, pixel, bool) {
		from := ringIndex(pixel{back.X - cur.X, back.Y - cur.Y})
		prev := back
		for k := 1; k <= 8; k++ {
			d := ring[(from+k)%8]
			cand := pixel{cur.X + d.X, cur.Y + d.Y}
			if bin.at(cand) {
				return cand, prev, true
			}
			prev = cand
		}
		return pixel{}, pixel{}, false
	}

	first, back, ok := step(start, pixel{start.X - 1, start.Y})
	if !ok {
		// Isolated pixel.
		return boundary
	}

	// A boundary pixel is entered at most 4 times.
	limit := 4*len(bin.dark) + 8
	cur := first
	for steps := 0; steps < limit; steps++ {
		if cur == start {
			next, _, _ := step(cur, back)
			if next == first {
				return boundary
			}
		}
		boundary = append(boundary, cur)

		next, prev, _ := step(cur, back)
		cur, back = next, prev
	}
	return boundary
}

func toPoint(p pixel) geometry.Point {
	return geometry.Pt(float64(p.X), float64(p.Y))
}

func perimeter(boundary []pixel) float64 {
	if len(boundary) < 2 {
		return 0
	}
	total := 0.0
	for i := range boundary {
		a := toPoint(boundary[i])
		b := toPoint(boundary[(i+1)%len(boundary)])
		total += a.Distance(b)
	}
	return total
}

// simplifyClosed runs Douglas-Peucker on a closed curve. The curve is split
// at two anchors: the point farthest from the first traced point, and the
// point farthest from that one. Both arcs between the anchors are simplified
// as open chains, so where the trace happened to start has no bearing on
// which vertices survive.
func simplifyClosed(boundary []pixel, epsilon float64) geometry.Polygon {
	pts := make([]geometry.Point, len(boundary))
	for i, p := range boundary {
		pts[i] = toPoint(p)
	}
	if len(pts) < 3 {
		return pts
	}

	a := farthestFrom(pts, pts[0])
	c := farthestFrom(pts, pts[a])
	if a == c {
		return geometry.Polygon{pts[0]}
	}
	i, j := min(a, c), max(a, c)

	first := douglasPeucker(pts[i:j+1], epsilon)
	wrap := make([]geometry.Point, 0, len(pts)-j+i+1)
	wrap = append(wrap, pts[j:]...)
	wrap = append(wrap, pts[:i+1]...)
	second := douglasPeucker(wrap, epsilon)

	// first ends with pts[j], second starts with it and ends with pts[i].
	poly := make(geometry.Polygon, 0, len(first)+len(second))
	poly = append(poly, first...)
	poly = append(poly, second[1:len(second)-1]...)
	return poly
}

// farthestFrom returns the index of the first point at maximum distance from p.
func farthestFrom(pts []geometry.Point, p geometry.Point) int {
	best, bestDist := 0, -1.0
	for i, q := range pts {
		if d := q.Distance(p); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// douglasPeucker simplifies an open chain, always keeping both endpoints.
func douglasPeucker(pts []geometry.Point, epsilon float64) []geometry.Point {
	if len(pts) < 3 {
		return append([]geometry.Point(nil), pts...)
	}

	a, b := pts[0], pts[len(pts)-1]
	idx, maxDist := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := distanceToLine(pts[i], a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}

	if maxDist <= epsilon {
		return []geometry.Point{a, b}
	}

	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// distanceToLine returns the distance from p to the line through a and b, or
// to a when they coincide.
func distanceToLine(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p.Distance(a)
	}
	return math.Abs(dy*(p.X-a.X)-dx*(p.Y-a.Y)) / length
}
