package geometry

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultTolerance is the relative tolerance used by the approximate comparisons.
const DefaultTolerance = 0.15

// approxSlack absorbs rounding when value sits exactly on the tolerance edge.
const approxSlack = 1e-12

// ApproxEqual reports whether value is within tolerance*|target| of target.
// The bound is inclusive.
func ApproxEqual(value, target, tolerance float64) bool {
	return math.Abs(value-target) <= math.Abs(tolerance*target)+approxSlack
}

// WithinTolerance reports whether value lies strictly inside target ± tolerance.
func WithinTolerance(value, target, tolerance float64) bool {
	return value > target-tolerance && value < target+tolerance
}

// AllApproxEqual reports whether every value is approximately equal to target.
// When target is nil the mean of values is used, which checks that the values
// are approximately equal to each other. An empty slice is trivially equal.
func AllApproxEqual(values []float64, target *float64, tolerance float64) bool {
	if len(values) == 0 {
		return true
	}
	t := stat.Mean(values, nil)
	if target != nil {
		t = *target
	}
	for _, v := range values {
		if !ApproxEqual(v, t, tolerance) {
			return false
		}
	}
	return true
}
