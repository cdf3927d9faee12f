package raytrace

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/directivity"
)

// selfHit is the minimum travel distance after a reflection, so that a ray
// leaving a wall does not hit it again.
const selfHit = 1e-6

// rayState holds per-goroutine scratch buffers.
type rayState struct {
	energy  []float64
	deposit []float64
}

func newRayState(bands int) *rayState {
	return &rayState{energy: make([]float64, bands), deposit: make([]float64, bands)}
}

func (t *Tracer) traceRay(rng *rand.Rand, st *rayState, src Source, mics []Mic, hist []*Histogram) {
	dir := uniformDir(rng)

	g := directivity.Gain(src.Directivity, dir)
	e0 := 4 * math.Pi * g * g
	if e0 == 0 {
		return
	}
	for b := range st.energy {
		st.energy[b] = e0
	}

	floor := t.cfg.EnergyThreshold * e0
	maxDist := t.cfg.MaxDuration * t.cfg.SpeedOfSound

	pos := src.Position
	var travelled float64

	for bounce := 0; ; bounce++ {
		tMin := selfHit
		if bounce == 0 {
			tMin = 0
		}

		hit, ok := t.room.Intersect(pos, dir, tMin, math.Inf(1))
		if !ok {
			return
		}

		t.detect(st, pos, dir, hit.T, travelled, mics, hist)

		travelled += hit.T
		if travelled > maxDist || bounce >= t.cfg.MaxBounces {
			return
		}

		w := hit.Wall
		for b := range st.energy {
			st.energy[b] *= 1 - t.alpha[w][b]
		}

		wall := t.room.Wall(w)
		s := t.meanScat[w]
		if rng.Float64() < s {
			for b := range st.energy {
				st.energy[b] *= t.scat[w][b] / s
			}
			dir = lambertDir(rng, r3.Scale(-1, wall.Normal()))
		} else {
			for b := range st.energy {
				st.energy[b] *= (1 - t.scat[w][b]) / (1 - s)
			}
			dir = wall.ReflectDir(dir)
		}

		pos = hit.Point
		if t.maxEnergy(st, travelled) < floor {
			return
		}
	}
}

// detect deposits the ray energy in every microphone sphere the segment
// from pos of length l passes through, at the point of closest approach.
func (t *Tracer) detect(st *rayState, pos, dir r3.Vec, l, travelled float64, mics []Mic, hist []*Histogram) {
	r2 := t.cfg.ReceiverRadius * t.cfg.ReceiverRadius
	area := math.Pi * r2

	for j, m := range mics {
		v := r3.Sub(m.Position, pos)
		tau := math.Max(0, math.Min(l, r3.Dot(v, dir)))
		q := r3.Sub(v, r3.Scale(tau, dir))
		if r3.Dot(q, q) > r2 {
			continue
		}

		g := directivity.Gain(m.Directivity, r3.Scale(-1, dir))
		if g == 0 {
			continue
		}

		dist := travelled + tau
		for b, e := range st.energy {
			st.deposit[b] = e * g * g / area
			if t.cfg.AirAbsorption != nil {
				st.deposit[b] *= decay(-t.cfg.AirAbsorption[b] * dist)
			}
		}
		hist[j].Add(dist/t.cfg.SpeedOfSound, st.deposit)
	}
}

func (t *Tracer) maxEnergy(st *rayState, dist float64) float64 {
	var m float64
	for b, e := range st.energy {
		if t.cfg.AirAbsorption != nil {
			e *= decay(-t.cfg.AirAbsorption[b] * dist)
		}
		m = math.Max(m, e)
	}
	return m
}

// uniformDir draws a direction uniformly from the unit sphere.
func uniformDir(rng *rand.Rand) r3.Vec {
	z := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	r := math.Sqrt(1 - z*z)
	return r3.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}

// lambertDir draws a cosine-weighted direction from the hemisphere around
// unit normal n.
func lambertDir(rng *rand.Rand, n r3.Vec) r3.Vec {
	u1, u2 := rng.Float64(), rng.Float64()
	r := math.Sqrt(u1)
	phi := 2 * math.Pi * u2

	t1 := tangent(n)
	t2 := r3.Cross(n, t1)

	d := r3.Add(
		r3.Add(r3.Scale(r*math.Cos(phi), t1), r3.Scale(r*math.Sin(phi), t2)),
		r3.Scale(math.Sqrt(1-u1), n),
	)
	return r3.Unit(d)
}

// tangent returns a unit vector orthogonal to n.
func tangent(n r3.Vec) r3.Vec {
	a := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		a = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(n, a))
}
