package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/grid"
)

func whiteImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, _ := a.RGBA()
	r2, g2, b2, _ := b.RGBA()
	return r1>>8 == r2>>8 && g1>>8 == g2>>8 && b1>>8 == b2>>8
}

func TestOverlay(t *testing.T) {
	src := whiteImage(200, 200)
	corners := geometry.Polygon{{X: 20, Y: 20}, {X: 180, Y: 20}, {X: 180, Y: 180}, {X: 20, Y: 180}}
	g, err := grid.New(corners, 4, 4, nil, grid.DefaultOptions)
	if err != nil {
		t.Fatalf("grid.New failed: %v", err)
	}

	out := Overlay(src, OverlayOptions{
		Grid:      g,
		Ratios:    map[grid.Cell]float64{{Col: 1, Row: 1}: 0.9, {Col: 2, Row: 2}: 0.1},
		Threshold: 0.5,
		Corners:   corners,
	})

	if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("dimensions: got %dx%d", b.Dx(), b.Dy())
	}

	// Cell corner dot of cell (1, 1) sits at (60, 60).
	if !sameColor(out.At(60, 60), GridPointColor) {
		t.Errorf("grid point colour: got %v", out.At(60, 60))
	}
	// Hit marker at the centre of cell (1, 1); none at cell (2, 2).
	if !sameColor(out.At(80, 80), HitColor) {
		t.Errorf("hit marker colour: got %v", out.At(80, 80))
	}
	if !sameColor(out.At(120, 120), color.White) {
		t.Errorf("cell below threshold was marked: %v", out.At(120, 120))
	}
	// Registration corner disc.
	if !sameColor(out.At(180, 20), CornerColor) {
		t.Errorf("corner colour: got %v", out.At(180, 20))
	}

	if !sameColor(src.At(60, 60), color.White) {
		t.Error("Overlay modified its input")
	}
}

func TestRatioColor(t *testing.T) {
	if got := RatioColor(0); !sameColor(got, EmptyColor) {
		t.Errorf("RatioColor(0) = %v, want %v", got.Hex(), EmptyColor.Hex())
	}
	if got := RatioColor(1); !sameColor(got, FilledColor) {
		t.Errorf("RatioColor(1) = %v, want %v", got.Hex(), FilledColor.Hex())
	}
	if got := RatioColor(7); !sameColor(got, FilledColor) {
		t.Errorf("RatioColor clamps: got %v", got.Hex())
	}
	mid := RatioColor(0.5)
	if sameColor(mid, EmptyColor) || sameColor(mid, FilledColor) {
		t.Errorf("RatioColor(0.5) = %v is an end of the ramp", mid.Hex())
	}
}

func TestEncodeOverlay(t *testing.T) {
	result, err := EncodeOverlay(whiteImage(40, 30))
	if err != nil {
		t.Fatalf("EncodeOverlay failed: %v", err)
	}
	if result.Width != 40 || result.Height != 30 || result.MimeType != "image/png" {
		t.Errorf("unexpected result: %+v", result)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	if _, err := png.Decode(strings.NewReader(string(data))); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.png")
	if err := Save(whiteImage(10, 10), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
	if err := Save(whiteImage(10, 10), filepath.Join(t.TempDir(), "grid.unknown")); err == nil {
		t.Error("Save should fail for an unknown extension")
	}
}
