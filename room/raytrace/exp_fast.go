//go:build fastmath

package raytrace

import "github.com/meko-christian/algo-approx"

// decay computes e^x using fast approximation.
func decay(x float64) float64 {
	return approx.FastExp(x)
}
