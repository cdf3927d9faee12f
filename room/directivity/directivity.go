package directivity

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	lin "github.com/sgreben/piecewiselinear"
)

// ErrInvalidPattern is returned for malformed pattern parameters.
var ErrInvalidPattern = errors.New("directivity: invalid pattern")

// Pattern returns the amplitude gain towards dir. dir is a unit vector.
type Pattern interface {
	Gain(dir r3.Vec) float64
}

// Gain evaluates p, treating a nil pattern as omnidirectional.
func Gain(p Pattern, dir r3.Vec) float64 {
	if p == nil {
		return 1
	}
	return p.Gain(dir)
}

// CardioidFamily is a first-order pattern |p + (1-p)·cos θ| where θ is the
// angle to the orientation.
type CardioidFamily struct {
	orientation r3.Vec
	p           float64
	gain        float64
}

// NewCardioidFamily builds a first-order pattern with mixing factor p in
// [0,1] (1 is omnidirectional, 0 a figure-of-eight) and linear on-axis gain.
func NewCardioidFamily(orientation r3.Vec, p, gain float64) (*CardioidFamily, error) {
	n := r3.Norm(orientation)
	if !(n > 0) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%w: orientation %v", ErrInvalidPattern, orientation)
	}
	if !(p >= 0 && p <= 1) {
		return nil, fmt.Errorf("%w: mixing factor %g outside [0,1]", ErrInvalidPattern, p)
	}
	if !(gain > 0) || math.IsInf(gain, 0) {
		return nil, fmt.Errorf("%w: gain %g", ErrInvalidPattern, gain)
	}

	return &CardioidFamily{orientation: r3.Scale(1/n, orientation), p: p, gain: gain}, nil
}

// Omni returns the omnidirectional member of the family.
func Omni(orientation r3.Vec) (*CardioidFamily, error) { return NewCardioidFamily(orientation, 1, 1) }

// Subcardioid returns a pattern with p = 0.75.
func Subcardioid(orientation r3.Vec) (*CardioidFamily, error) {
	return NewCardioidFamily(orientation, 0.75, 1)
}

// Cardioid returns a pattern with p = 0.5.
func Cardioid(orientation r3.Vec) (*CardioidFamily, error) {
	return NewCardioidFamily(orientation, 0.5, 1)
}

// Hypercardioid returns a pattern with p = 0.25.
func Hypercardioid(orientation r3.Vec) (*CardioidFamily, error) {
	return NewCardioidFamily(orientation, 0.25, 1)
}

// Figure8 returns a pattern with p = 0.
func Figure8(orientation r3.Vec) (*CardioidFamily, error) {
	return NewCardioidFamily(orientation, 0, 1)
}

// Gain implements [Pattern].
func (c *CardioidFamily) Gain(dir r3.Vec) float64 {
	cos := r3.Dot(c.orientation, dir)
	return c.gain * math.Abs(c.p+(1-c.p)*cos)
}

// Orientation returns the on-axis direction.
func (c *CardioidFamily) Orientation() r3.Vec { return c.orientation }

// Measured is a pattern interpolated from horizontal and vertical polar
// responses. Yaw is measured in the plane spanned by the orientation and
// the horizontal axis, pitch towards the up vector; the dB gains of both
// planes add.
type Measured struct {
	toLocal quat.Number

	horiz, vert lin.Function
}

// NewMeasured builds a measured pattern. horiz and vert map non-negative
// angles in degrees to gains in dB and are mirrored for negative angles.
// A missing 0° entry is taken as 0 dB. Angles beyond the largest entry use
// the last gain.
func NewMeasured(orientation, up r3.Vec, horiz, vert map[float64]float64) (*Measured, error) {
	fwd := r3.Unit(orientation)
	if !finiteVec(fwd) {
		return nil, fmt.Errorf("%w: orientation %v", ErrInvalidPattern, orientation)
	}

	// Remove the forward component of up so the frame is orthonormal.
	u := r3.Sub(up, r3.Scale(r3.Dot(up, fwd), fwd))
	if r3.Norm(u) < 1e-9 {
		return nil, fmt.Errorf("%w: up vector %v parallel to orientation", ErrInvalidPattern, up)
	}
	u = r3.Unit(u)

	hf, err := polar(horiz, "horizontal")
	if err != nil {
		return nil, err
	}
	vf, err := polar(vert, "vertical")
	if err != nil {
		return nil, err
	}

	// Rotate fwd onto +X first, then the rotated up vector onto +Z.
	q1 := rotation(fwd, r3.Vec{X: 1})
	u1 := rotate(q1, u)
	q2 := rotation(u1, r3.Vec{Z: 1})

	return &Measured{toLocal: quat.Mul(q2, q1), horiz: hf, vert: vf}, nil
}

func polar(m map[float64]float64, name string) (lin.Function, error) {
	angles := make([]float64, 0, len(m)+1)
	for a, g := range m {
		if !(a >= 0 && a <= 180) {
			return lin.Function{}, fmt.Errorf("%w: %s angle %g outside [0,180]", ErrInvalidPattern, name, a)
		}
		if math.IsNaN(g) || math.IsInf(g, 1) {
			return lin.Function{}, fmt.Errorf("%w: %s gain %g dB at %g°", ErrInvalidPattern, name, g, a)
		}
		angles = append(angles, a)
	}
	if _, ok := m[0]; !ok {
		angles = append(angles, 0)
	}
	slices.Sort(angles)

	gains := make([]float64, len(angles))
	for i, a := range angles {
		gains[i] = m[a]
	}

	return lin.Function{X: angles, Y: gains}, nil
}

// Gain implements [Pattern].
func (m *Measured) Gain(dir r3.Vec) float64 {
	l := rotate(m.toLocal, dir)
	yaw := math.Abs(math.Atan2(l.Y, l.X)) * 180 / math.Pi
	pitch := math.Abs(math.Atan2(l.Z, math.Hypot(l.X, l.Y))) * 180 / math.Pi

	db := at(m.horiz, yaw) + at(m.vert, pitch)
	return math.Pow(10, db/20)
}

// at evaluates f, holding the end values outside its domain.
func at(f lin.Function, x float64) float64 {
	n := len(f.X)
	switch {
	case n == 1 || x <= f.X[0]:
		return f.Y[0]
	case x >= f.X[n-1]:
		return f.Y[n-1]
	}
	return f.At(x)
}

// rotation returns the unit quaternion rotating unit vector from onto to.
func rotation(from, to r3.Vec) quat.Number {
	d := r3.Dot(from, to)
	if d > 1-1e-12 {
		return quat.Number{Real: 1}
	}

	var q quat.Number
	if d < -1+1e-12 {
		axis := orthogonal(from)
		q = quat.Number{Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	} else {
		w := r3.Cross(from, to)
		q = quat.Number{Real: 1 + d, Imag: w.X, Jmag: w.Y, Kmag: w.Z}
	}

	return quat.Scale(1/quat.Abs(q), q)
}

func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

func orthogonal(v r3.Vec) r3.Vec {
	x, y, z := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)

	var other r3.Vec
	switch {
	case x < y && x < z:
		other = r3.Vec{X: 1}
	case y < z:
		other = r3.Vec{Y: 1}
	default:
		other = r3.Vec{Z: 1}
	}
	return r3.Unit(r3.Cross(v, other))
}

func finiteVec(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
