package ir

import "math"

// boundary converts a time in ms to a sample count.
func (a *Analyzer) boundary(timeMs float64) int {
	return int(math.Round(timeMs * 1e-3 * a.fs))
}

// split returns the energy before and from sample b on.
func split(rir []float64, b int) (early, late float64) {
	for i, v := range rir {
		if i < b {
			early += v * v
		} else {
			late += v * v
		}
	}
	return early, late
}

// Definition returns the fraction of the energy that arrives in the first
// timeMs milliseconds of rir.
func (a *Analyzer) Definition(rir []float64, timeMs float64) (float64, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}
	if !(timeMs > 0) {
		return 0, ErrInvalidTime
	}
	return a.definition(rir, timeMs), nil
}

func (a *Analyzer) definition(rir []float64, timeMs float64) float64 {
	b := a.boundary(timeMs)
	if b <= 0 {
		return 0
	}
	if b >= len(rir) {
		return 1
	}

	early, late := split(rir, b)
	if early+late <= 0 {
		return 0
	}
	return early / (early + late)
}

// Clarity returns the ratio in dB of the energy before and after timeMs.
func (a *Analyzer) Clarity(rir []float64, timeMs float64) (float64, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}
	if !(timeMs > 0) {
		return 0, ErrInvalidTime
	}
	return a.clarity(rir, timeMs), nil
}

func (a *Analyzer) clarity(rir []float64, timeMs float64) float64 {
	b := a.boundary(timeMs)
	if b <= 0 {
		return math.Inf(-1)
	}
	if b >= len(rir) {
		return math.Inf(1)
	}

	early, late := split(rir, b)
	switch {
	case late <= 0:
		return math.Inf(1)
	case early <= 0:
		return math.Inf(-1)
	}
	return 10 * math.Log10(early/late)
}

// CenterTime returns the energy centroid of rir in seconds.
func (a *Analyzer) CenterTime(rir []float64) (float64, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}
	return a.centerTime(rir), nil
}

func (a *Analyzer) centerTime(rir []float64) float64 {
	var num, den float64
	for i, v := range rir {
		e := v * v
		num += float64(i) / a.fs * e
		den += e
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

// DRR returns the direct-to-reverberant ratio in dB: the energy within
// 2.5 ms of the strongest arrival against all other energy.
func (a *Analyzer) DRR(rir []float64) (float64, error) {
	if len(rir) == 0 {
		return 0, ErrEmptyIR
	}
	return a.drr(rir, peakIndex(rir)), nil
}

func (a *Analyzer) drr(rir []float64, peak int) float64 {
	w := int(math.Round(directWindow * a.fs))

	var direct, reverb float64
	for i, v := range rir {
		if i >= peak-w && i <= peak+w {
			direct += v * v
		} else {
			reverb += v * v
		}
	}

	switch {
	case reverb <= 0:
		return math.Inf(1)
	case direct <= 0:
		return math.Inf(-1)
	}
	return 10 * math.Log10(direct/reverb)
}
