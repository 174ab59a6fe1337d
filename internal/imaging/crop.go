package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

// ZoomPolygon crops the bounding box of poly, grown by pad pixels on every
// side and clamped to the image, and scales it by scale with Lanczos
// resampling. It is used to inspect registration marks up close.
func ZoomPolygon(img image.Image, poly geometry.Polygon, pad int, scale float64) (*image.NRGBA, error) {
	if len(poly) == 0 {
		return nil, fmt.Errorf("cannot zoom an empty polygon")
	}
	if scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %g", scale)
	}

	min, max := poly.Bounds()
	rect := image.Rect(
		int(math.Floor(min.X))-pad,
		int(math.Floor(min.Y))-pad,
		int(math.Ceil(max.X))+pad+1,
		int(math.Ceil(max.Y))+pad+1,
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("polygon %v lies outside image bounds %v", poly, img.Bounds())
	}

	cropped := imaging.Crop(img, rect)
	if scale != 1.0 {
		w := int(math.Round(float64(rect.Dx()) * scale))
		h := int(math.Round(float64(rect.Dy()) * scale))
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %g leaves an empty image", scale)
		}
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}
	return cropped, nil
}
