package sheet

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/grid"
	"github.com/ironsheep/bubblescan/internal/imaging"
)

// Zoom applied to registration mark crops in debug output.
const (
	markZoomPad   = 8
	markZoomScale = 4
)

// debugName turns a sheet name into a directory name.
func debugName(sheet string) string {
	name := strings.TrimSuffix(sheet, filepath.Ext(sheet))
	if name == "" {
		name = "sheet"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}

// writeDebug writes the prepared scan, the grid overlay, a zoomed crop of each
// registration mark and the sorted fill ratios behind the threshold into dir.
func writeDebug(dir string, src image.Image, a *Analysis) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create debug directory: %w", err)
	}
	if err := imaging.Save(a.Prepared, filepath.Join(dir, "prepared.png")); err != nil {
		return err
	}
	if err := imaging.Save(a.Overlay(src), filepath.Join(dir, "grid.png")); err != nil {
		return err
	}
	for _, c := range []geometry.Corner{geometry.TopLeft, geometry.TopRight, geometry.BottomRight, geometry.BottomLeft} {
		zoom, err := imaging.ZoomPolygon(src, a.Registration.Mark(c), markZoomPad, markZoomScale)
		if err != nil {
			return err
		}
		if err := imaging.Save(zoom, filepath.Join(dir, "mark_"+c.String()+".png")); err != nil {
			return err
		}
	}

	var all [][][]float64
	for _, ratios := range a.FieldRatios {
		all = append(all, ratios)
	}
	all = append(all, a.AnswerRatios...)
	ratios := grid.Flatten(all...)
	sort.Float64s(ratios)

	var b strings.Builder
	for i, r := range ratios {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.4f", r)
	}
	fmt.Fprintf(&b, "\n\nthreshold: %.4f\n", a.Threshold)

	if err := os.WriteFile(filepath.Join(dir, "threshold.txt"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write threshold values: %w", err)
	}
	return nil
}
