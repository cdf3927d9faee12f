//go:build !fastmath

package raytrace

import "math"

// decay computes e^x using standard library math.
func decay(x float64) float64 {
	return math.Exp(x)
}
