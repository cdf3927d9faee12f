package raytrace

import "math"

// Histogram accumulates detected energy per band in bins of fixed width.
// Bins are added on demand.
type Histogram struct {
	binWidth float64
	energy   [][]float64
}

// NewHistogram returns an empty histogram for bands frequency bands.
func NewHistogram(bands int, binWidth float64) *Histogram {
	return &Histogram{binWidth: binWidth, energy: make([][]float64, bands)}
}

// BinWidth returns the bin width in seconds.
func (h *Histogram) BinWidth() float64 { return h.binWidth }

// Bands returns the number of bands.
func (h *Histogram) Bands() int { return len(h.energy) }

// Len returns the number of bins.
func (h *Histogram) Len() int {
	if len(h.energy) == 0 {
		return 0
	}
	return len(h.energy[0])
}

// Band returns the bins of band b. The slice is shared with h.
func (h *Histogram) Band(b int) []float64 { return h.energy[b] }

// At returns the energy of band b in bin i, zero beyond the last bin.
func (h *Histogram) At(b, i int) float64 {
	if i < 0 || i >= h.Len() {
		return 0
	}
	return h.energy[b][i]
}

func (h *Histogram) grow(n int) {
	if n <= h.Len() {
		return
	}
	for b := range h.energy {
		h.energy[b] = append(h.energy[b], make([]float64, n-len(h.energy[b]))...)
	}
}

// Add deposits energy e[b] at time t seconds.
func (h *Histogram) Add(t float64, e []float64) {
	i := int(t / h.binWidth)
	if i < 0 {
		return
	}
	h.grow(i + 1)
	for b := range h.energy {
		h.energy[b][i] += e[b]
	}
}

// Merge adds o to h bin by bin.
func (h *Histogram) Merge(o *Histogram) {
	h.grow(o.Len())
	for b := range h.energy {
		for i, v := range o.energy[b] {
			h.energy[b][i] += v
		}
	}
}

// Scale multiplies every bin by f.
func (h *Histogram) Scale(f float64) {
	for b := range h.energy {
		for i := range h.energy[b] {
			h.energy[b][i] *= f
		}
	}
}

// Total returns the energy summed over bins and bands from time t on.
func (h *Histogram) Total(t float64) float64 {
	start := max(int(math.Ceil(t/h.binWidth)), 0)

	var sum float64
	for b := range h.energy {
		for i := start; i < len(h.energy[b]); i++ {
			sum += h.energy[b][i]
		}
	}
	return sum
}

// Trim drops trailing bins whose energy in every band is below floor times
// the largest bin.
func (h *Histogram) Trim(floor float64) {
	var peak float64
	for b := range h.energy {
		for _, v := range h.energy[b] {
			peak = math.Max(peak, v)
		}
	}

	n := h.Len()
	for ; n > 0; n-- {
		keep := false
		for b := range h.energy {
			if h.energy[b][n-1] > floor*peak {
				keep = true
				break
			}
		}
		if keep {
			break
		}
	}

	for b := range h.energy {
		h.energy[b] = h.energy[b][:n]
	}
}
