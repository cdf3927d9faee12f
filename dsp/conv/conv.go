package conv

import (
	"errors"
	"fmt"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput     = errors.New("conv: empty input")
	ErrEmptyKernel    = errors.New("conv: empty kernel")
	ErrLengthMismatch = errors.New("conv: buffer length mismatch")
)

// directThreshold is the kernel length up to which direct convolution beats
// overlap-add.
const directThreshold = 64

// Direct performs direct time-domain linear convolution of a and b.
// Returns a new slice of length len(a) + len(b) - 1.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	result := make([]float64, len(a)+len(b)-1)
	directAdd(result, a, b)
	return result, nil
}

// directAdd accumulates the convolution of a and b into dst, which must
// hold at least len(a) + len(b) - 1 samples.
func directAdd(dst, a, b []float64) {
	m := len(b)
	if m < 4 {
		for i, x := range a {
			for j, y := range b {
				dst[i+j] += x * y
			}
		}
		return
	}

	temp := make([]float64, m)
	for i, x := range a {
		if x == 0 {
			continue
		}
		vecmath.ScaleBlock(temp, b, x)
		vecmath.AddBlockInPlace(dst[i:i+m], temp)
	}
}

// Convolve performs linear convolution with automatic algorithm selection:
// direct for kernels up to 64 samples, overlap-add above.
func Convolve(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	if len(b) > len(a) {
		a, b = b, a
	}

	if len(b) <= directThreshold {
		return Direct(a, b)
	}

	return OverlapAddConvolve(a, b)
}

// ConvolveAddTo adds the convolution of signal and kernel to dst, starting
// at dst[offset]. The whole result must fit: offset + len(signal) +
// len(kernel) - 1 <= len(dst).
func ConvolveAddTo(dst []float64, offset int, signal, kernel []float64) error {
	if len(signal) == 0 {
		return ErrEmptyInput
	}
	if len(kernel) == 0 {
		return ErrEmptyKernel
	}

	n := len(signal) + len(kernel) - 1
	if offset < 0 || offset+n > len(dst) {
		return fmt.Errorf("%w: %d samples at offset %d into %d", ErrLengthMismatch, n, offset, len(dst))
	}

	short, long := kernel, signal
	if len(short) > len(long) {
		short, long = long, short
	}

	if len(short) <= directThreshold {
		directAdd(dst[offset:offset+n], long, short)
		return nil
	}

	oa, err := NewOverlapAdd(short, 0)
	if err != nil {
		return err
	}
	return oa.ProcessAddTo(dst[offset:offset+n], long)
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
