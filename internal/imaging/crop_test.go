package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

func TestZoomPolygon(t *testing.T) {
	img := whiteImage(100, 100)
	for y := 40; y < 50; y++ {
		for x := 30; x < 40; x++ {
			img.Set(x, y, color.Black)
		}
	}
	square := geometry.Polygon{{X: 30, Y: 40}, {X: 39, Y: 40}, {X: 39, Y: 49}, {X: 30, Y: 49}}

	tests := []struct {
		name  string
		pad   int
		scale float64
		want  image.Point
	}{
		{"tight", 0, 1, image.Pt(10, 10)},
		{"padded", 5, 1, image.Pt(20, 20)},
		{"scaled", 5, 2, image.Pt(40, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ZoomPolygon(img, square, tt.pad, tt.scale)
			if err != nil {
				t.Fatalf("ZoomPolygon failed: %v", err)
			}
			if got.Bounds().Size() != tt.want {
				t.Errorf("size: got %v, want %v", got.Bounds().Size(), tt.want)
			}
		})
	}

	got, err := ZoomPolygon(img, square, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := got.At(5, 5).RGBA(); r != 0 {
		t.Error("crop does not contain the mark")
	}
}

func TestZoomPolygon_ClampsToImage(t *testing.T) {
	img := whiteImage(50, 50)
	got, err := ZoomPolygon(img, geometry.Polygon{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 9}, {X: 0, Y: 9}}, 20, 1)
	if err != nil {
		t.Fatalf("ZoomPolygon failed: %v", err)
	}
	if got.Bounds().Size() != image.Pt(30, 30) {
		t.Errorf("size: got %v, want 30x30", got.Bounds().Size())
	}
}

func TestZoomPolygon_Errors(t *testing.T) {
	img := whiteImage(50, 50)
	square := geometry.Polygon{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 20, Y: 20}, {X: 10, Y: 20}}
	tests := []struct {
		name  string
		poly  geometry.Polygon
		scale float64
	}{
		{"empty polygon", nil, 1},
		{"zero scale", square, 0},
		{"outside", geometry.Polygon{{X: 100, Y: 100}, {X: 110, Y: 100}, {X: 110, Y: 110}}, 1},
		{"vanishing scale", square, 0.01},
	}
	for _, tt := range tests {
		if _, err := ZoomPolygon(img, tt.poly, 0, tt.scale); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
