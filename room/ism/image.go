package ism

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-room/room/geom"
)

// Image is a mirrored copy of a source.
type Image struct {
	// Position is where the image emits from. It differs from the exact
	// mirror position when randomization is on.
	Position r3.Vec

	// Order is the number of reflections that created the image.
	Order int

	// Parent is the index of the image this one was mirrored from, -1 for
	// the source itself.
	Parent int

	// Wall is the wall of the last mirroring, -1 for the source itself.
	Wall int

	// Reflection holds the accumulated amplitude reflection factor per band.
	Reflection []float64

	exact   r3.Vec
	lattice [3]int
}

// ImageSet holds all images of one source, ordered by reflection order.
// Parents always precede their children.
type ImageSet struct {
	Index  int
	Source Source
	Images []Image

	// indices of the images at the maximum order, used for the horizon
	frontier []int
	lattice  bool
}

// Len returns the number of images including the source itself.
func (s *ImageSet) Len() int { return len(s.Images) }

// Images mirrors source src (with index idx) up to the configured order.
// rng supplies the random displacements and may be nil when randomization is
// off.
func (s *Solver) Images(idx int, src Source, rng *rand.Rand) *ImageSet {
	set := &ImageSet{Index: idx, Source: src, lattice: s.isBox}

	root := Image{
		Position:   src.Position,
		exact:      src.Position,
		Parent:     -1,
		Wall:       -1,
		Reflection: ones(s.cfg.Bands.Len()),
	}
	set.Images = append(set.Images, root)

	if s.isBox {
		s.latticeImages(set, rng)
	} else {
		s.treeImages(set, rng)
	}

	return set
}

// treeImages grows the image tree breadth first. An image is mirrored only
// across walls that have it on their interior side, which excludes
// reflections that cannot be valid and keeps the search finite.
func (s *Solver) treeImages(set *ImageSet, rng *rand.Rand) {
	walls := s.room.Walls()

	for i := 0; i < len(set.Images); i++ {
		img := set.Images[i]
		if img.Order == s.cfg.MaxOrder {
			set.frontier = append(set.frontier, i)
			continue
		}

		for w, wall := range walls {
			if w == img.Wall || wall.SignedDistance(img.exact) >= -geom.Eps {
				continue
			}

			refl := mulBands(img.Reflection, s.beta[w])
			if s.pruned(refl) {
				continue
			}

			exact := wall.Reflect(img.exact)
			set.Images = append(set.Images, Image{
				Position:   s.displace(exact, rng),
				Order:      img.Order + 1,
				Parent:     i,
				Wall:       w,
				Reflection: refl,
				exact:      exact,
			})
		}
	}
}

// latticeImages enumerates the images of a shoebox directly: image
// (nx, ny, nz) reflects |nx| times between the x walls and so on.
func (s *Solver) latticeImages(set *ImageSet, rng *rand.Rand) {
	index := map[[3]int]int{{}: 0}

	for order := 1; order <= s.cfg.MaxOrder; order++ {
		forShell(order, func(n [3]int) {
			refl := s.latticeReflection(n)
			if s.pruned(refl) {
				return
			}

			parent, wall := latticeParent(n)
			exact := s.latticePosition(set.Source.Position, n)
			index[n] = len(set.Images)
			set.Images = append(set.Images, Image{
				Position:   s.displace(exact, rng),
				Order:      order,
				Parent:     index[parent],
				Wall:       wall,
				Reflection: refl,
				exact:      exact,
				lattice:    n,
			})
		})
	}
}

// forShell calls fn for every lattice index with |nx|+|ny|+|nz| == order in
// a fixed order.
func forShell(order int, fn func(n [3]int)) {
	for nx := -order; nx <= order; nx++ {
		rx := order - abs(nx)
		for ny := -rx; ny <= rx; ny++ {
			rz := rx - abs(ny)
			fn([3]int{nx, ny, rz})
			if rz != 0 {
				fn([3]int{nx, ny, -rz})
			}
		}
	}
}

// reflections returns how often an image with lattice index n along one
// axis reflects off the lower and the upper wall of that axis.
func reflections(n int) (lower, upper int) {
	if n >= 0 {
		return n / 2, (n + 1) / 2
	}
	return (-n + 1) / 2, -n / 2
}

// boxWall returns the index of the lower or upper wall of an axis, matching
// the wall order of geom.NewBox.
func boxWall(axis int, upper bool) int {
	if upper {
		return axis*2 + 1
	}
	return axis * 2
}

func (s *Solver) latticeReflection(n [3]int) []float64 {
	refl := ones(s.cfg.Bands.Len())
	for axis, na := range n {
		lower, upper := reflections(na)
		lo, hi := s.beta[boxWall(axis, false)], s.beta[boxWall(axis, true)]
		for b := range refl {
			refl[b] *= math.Pow(lo[b], float64(lower)) * math.Pow(hi[b], float64(upper))
		}
	}
	return refl
}

// latticeParent steps the first non-zero axis of n towards zero and returns
// the resulting index with the wall of the removed reflection.
func latticeParent(n [3]int) ([3]int, int) {
	for axis, na := range n {
		if na == 0 {
			continue
		}

		p := n
		var upper bool
		if na > 0 {
			p[axis]--
			upper = na%2 == 1
		} else {
			p[axis]++
			upper = na%2 == 0
		}
		return p, boxWall(axis, upper)
	}
	return n, -1
}

func (s *Solver) latticePosition(src r3.Vec, n [3]int) r3.Vec {
	return r3.Vec{
		X: latticeCoord(n[0], src.X, s.size.X),
		Y: latticeCoord(n[1], src.Y, s.size.Y),
		Z: latticeCoord(n[2], src.Z, s.size.Z),
	}
}

func latticeCoord(n int, s, l float64) float64 {
	if n%2 == 0 {
		return float64(n)*l + s
	}
	return float64(n+1)*l - s
}

func (s *Solver) displace(p r3.Vec, rng *rand.Rand) r3.Vec {
	if s.cfg.RandomDisplacement == 0 || rng == nil {
		return p
	}

	// Rejection sampling from the enclosing cube gives a uniform ball.
	for {
		d := r3.Vec{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1, Z: 2*rng.Float64() - 1}
		if r3.Dot(d, d) <= 1 {
			return r3.Add(p, r3.Scale(s.cfg.RandomDisplacement, d))
		}
	}
}

func (s *Solver) pruned(refl []float64) bool {
	if s.cfg.EnergyThreshold == 0 {
		return false
	}

	var m float64
	for _, r := range refl {
		m = math.Max(m, r*r)
	}
	return m < s.cfg.EnergyThreshold
}

func mulBands(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
