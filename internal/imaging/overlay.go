package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/grid"
)

// Overlay colours. The fill ramp runs from EmptyColor at ratio 0 to
// FilledColor at ratio 1, blended in Lab space so mid ratios stay readable.
var (
	GridPointColor = colorful.Color{R: 1, G: 0, B: 0}
	EmptyColor     = colorful.Color{R: 0.15, G: 0.35, B: 1}
	FilledColor    = colorful.Color{R: 1, G: 0.45, B: 0}
	HitColor       = colorful.Color{R: 0, G: 0.75, B: 0.2}
	CornerColor    = colorful.Color{R: 0.85, G: 0, B: 0.85}
)

// OverlayOptions select what Overlay draws.
type OverlayOptions struct {
	// Grid draws a dot at every cell corner and the sampling mask of every
	// cell in Ratios.
	Grid *grid.Grid

	// Ratios are the measured fill ratios to colour the masks with. Cells
	// missing from the map get an uncoloured mask.
	Ratios map[grid.Cell]float64

	// Threshold marks cells whose ratio is strictly above it as hits.
	// Non-positive disables hit marking.
	Threshold float64

	// Corners are the registration corners, labelled TL, TR, BR and BL.
	Corners geometry.Polygon

	// Windows are extra outlines to draw, such as the corner search windows
	// mapped back to pixel space.
	Windows []geometry.Polygon
}

// Overlay draws the requested annotations on a copy of img.
func Overlay(img image.Image, opts OverlayOptions) *image.NRGBA {
	canvas := imaging.Clone(img)

	for _, w := range opts.Windows {
		drawPolygon(canvas, w, CornerColor)
	}

	if g := opts.Grid; g != nil {
		for row := 0; row < g.Rows(); row++ {
			for col := 0; col < g.Columns(); col++ {
				for _, p := range g.CellShape(col, row) {
					setPixel(canvas, p, GridPointColor)
				}

				ratio, measured := opts.Ratios[grid.Cell{Col: col, Row: row}]
				if !measured {
					continue
				}
				r := g.Region(col, row)
				c := RatioColor(ratio)
				if r.Radius > 0 {
					drawCircle(canvas, r.Center, r.Radius, c)
				} else {
					drawPolygon(canvas, r.Shape, c)
				}
				if opts.Threshold > 0 && ratio > opts.Threshold {
					fillDisc(canvas, r.Center, 2, HitColor)
				}
			}
		}
	}

	for i, p := range opts.Corners {
		fillDisc(canvas, p, 4, CornerColor)
		if i < 4 {
			drawLabel(canvas, p, geometry.Corner(i).String(), CornerColor)
		}
	}
	return canvas
}

// RatioColor maps a fill ratio to the overlay colour ramp.
func RatioColor(ratio float64) colorful.Color {
	t := math.Max(0, math.Min(1, ratio))
	return EmptyColor.BlendLab(FilledColor, t).Clamped()
}

func setPixel(img *image.NRGBA, p geometry.Point, c color.Color) {
	img.Set(int(math.Round(p.X)), int(math.Round(p.Y)), c)
}

func drawCircle(img *image.NRGBA, center geometry.Point, radius float64, c color.Color) {
	steps := int(math.Max(16, 2*math.Pi*radius))
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		setPixel(img, geometry.Pt(center.X+radius*math.Cos(theta), center.Y+radius*math.Sin(theta)), c)
	}
}

func fillDisc(img *image.NRGBA, center geometry.Point, radius float64, c color.Color) {
	r := int(math.Ceil(radius))
	cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) <= radius*radius {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

func drawPolygon(img *image.NRGBA, poly geometry.Polygon, c color.Color) {
	for i, a := range poly {
		b := poly[poly.Next(i)]
		steps := int(math.Max(1, math.Ceil(a.Distance(b))))
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			setPixel(img, geometry.Pt(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t), c)
		}
	}
}

// drawLabel writes text just below and right of p.
func drawLabel(img *image.NRGBA, p geometry.Point, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(math.Round(p.X))+6, int(math.Round(p.Y))+16),
	}
	d.DrawString(text)
}

// OverlayResult is a PNG overlay ready to return over the wire.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeOverlay encodes img as a base64 PNG.
func EncodeOverlay(img image.Image) (*OverlayResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Save writes img to path, choosing the format from the extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
