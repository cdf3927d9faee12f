package room

import (
	"errors"
	"fmt"
	"math"
)

// RT60Method selects a statistical reverberation time formula.
type RT60Method int

const (
	// Sabine assumes a diffuse field and low absorption.
	Sabine RT60Method = iota

	// Eyring is more accurate for rooms with high absorption.
	Eyring
)

func (m RT60Method) String() string {
	switch m {
	case Sabine:
		return "sabine"
	case Eyring:
		return "eyring"
	default:
		return fmt.Sprintf("RT60Method(%d)", int(m))
	}
}

// ErrUnknownMethod is returned for an undefined [RT60Method].
var ErrUnknownMethod = errors.New("room: unknown RT60 method")

// sabineConstant returns 24·ln(10)/c, about 0.161 s/m at 343 m/s.
func sabineConstant(c float64) float64 {
	return 24 * math.Ln10 / c
}

// RT60Theory returns the statistical reverberation time in seconds per band.
// Air absorption contributes 4·m·V to the absorption area when enabled.
func (r *Room) RT60Theory(method RT60Method) ([]float64, error) {
	p := r.Geometry()
	if p == nil {
		return nil, fmt.Errorf("%w: floor plan has not been extruded", ErrIncompleteGeometry)
	}

	if method != Sabine && method != Eyring {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
	}

	v, s := p.Volume(), p.SurfaceArea()
	k := sabineConstant(r.cfg.speedOfSound)
	nb := r.bands.Len()

	area := make([]float64, nb)
	for _, w := range p.Walls() {
		for b, a := range w.Material().AbsorptionAt(r.bands) {
			area[b] += w.Area() * a
		}
	}

	out := make([]float64, nb)
	for b := range out {
		var air float64
		if r.air != nil {
			air = 4 * r.air[b] * v
		}

		a := area[b]
		if method == Eyring {
			mean := area[b] / s
			if mean >= 1 {
				out[b] = 0
				continue
			}
			a = -s * math.Log(1-mean)
		}

		if a+air == 0 {
			out[b] = math.Inf(1)
			continue
		}
		out[b] = k * v / (a + air)
	}

	return out, nil
}

// InverseSabine returns the uniform energy absorption coefficient that gives
// a shoebox of lx×ly×lz metres the Sabine reverberation time rt60, and the
// image-source order needed to cover that time. c is the speed of sound in
// m/s.
func InverseSabine(rt60, lx, ly, lz, c float64) (absorption float64, maxOrder int, err error) {
	for _, v := range []float64{rt60, lx, ly, lz, c} {
		if !positiveFinite(v) {
			return 0, 0, fmt.Errorf("%w: rt60, extents and speed of sound must be > 0 and finite", ErrInvalidOption)
		}
	}

	pairs := [3][2]float64{{lx, ly}, {lx, lz}, {ly, lz}}

	var s float64
	minR := math.Inf(1)
	for _, p := range pairs {
		s += 2 * p[0] * p[1]
		minR = math.Min(minR, p[0]*p[1]/math.Hypot(p[0], p[1]))
	}

	absorption = sabineConstant(c) * lx * ly * lz / (s * rt60)
	if absorption > 1 {
		return 0, 0, fmt.Errorf("%w: needs absorption %.3f for %g s", ErrUnreachableRT60, absorption, rt60)
	}

	maxOrder = int(math.Ceil(c*rt60/minR - 1))

	return absorption, maxOrder, nil
}
