package imaging

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/grid"
)

// DarknessSampler measures fill ratios on a prepared scan. The ratio of a
// region is the mean of 1 - v/255 over the pixels whose centres fall inside
// it, so a fully black region reads 1 and a white one 0.
type DarknessSampler struct {
	Image *image.Gray
}

// NewDarknessSampler returns a sampler over img.
func NewDarknessSampler(img *image.Gray) *DarknessSampler {
	return &DarknessSampler{Image: img}
}

// SampleDarkness implements grid.Sampler. A region that covers no pixel of
// the image reads 0.
func (s *DarknessSampler) SampleDarkness(r grid.Region) float64 {
	b := s.Image.Bounds()
	min, max := r.Bounds()

	x0 := maxInt(int(math.Ceil(min.X)), b.Min.X)
	y0 := maxInt(int(math.Ceil(min.Y)), b.Min.Y)
	x1 := minInt(int(math.Floor(max.X)), b.Max.X-1)
	y1 := minInt(int(math.Floor(max.Y)), b.Max.Y-1)

	var values []float64
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !r.Contains(geometry.Pt(float64(x), float64(y))) {
				continue
			}
			values = append(values, 1-float64(s.Image.GrayAt(x, y).Y)/255)
		}
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
