package grid

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultThreshold is used when there are too few ratios to find a gap.
	DefaultThreshold = 0.5

	// DefaultThresholdFraction is the share of highest ratios searched for
	// the gap. It assumes fewer bubbles than this are filled on a sheet.
	DefaultThresholdFraction = 0.2
)

// Threshold finds the fill ratio that separates marked bubbles from empty
// ones on a single sheet.
//
// The ratios are sorted and only the highest fraction of them is kept. The
// largest step between consecutive values in that slice is taken as the
// boundary between the empty and filled clusters, and its midpoint is
// returned. The input is not modified.
func Threshold(ratios []float64, fraction float64) float64 {
	if len(ratios) < 2 {
		return DefaultThreshold
	}
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultThresholdFraction
	}

	sorted := append([]float64(nil), ratios...)
	sort.Float64s(sorted)

	n := int(math.Round(float64(len(sorted)) * fraction))
	if n < 2 {
		n = 2
	}
	top := sorted[len(sorted)-n:]

	diffs := make([]float64, len(top)-1)
	for i := range diffs {
		diffs[i] = top[i+1] - top[i]
	}
	i := floats.MaxIdx(diffs)
	return (top[i] + top[i+1]) / 2
}

// Flatten joins the fill ratios of several groups into one slice.
func Flatten(groups ...[][]float64) []float64 {
	var out []float64
	for _, group := range groups {
		for _, field := range group {
			out = append(out, field...)
		}
	}
	return out
}
