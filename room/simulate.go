package room

import (
	"context"
	"fmt"
	"math"

	"github.com/cwbudde/algo-room/dsp/conv"
)

// Simulation is the output of [Room.Simulate].
type Simulation struct {
	// RIR holds the impulse responses used for the simulation.
	RIR *Result

	// Signals has one signal per microphone, all of the same length.
	Signals [][]float64
}

// Simulate computes the impulse responses and renders what every
// microphone records: each source signal, shifted by its delay, convolved
// with its response and summed. Sources without a signal are silent.
// It fails with [ErrEmptyResult] when no source has a signal.
func (r *Room) Simulate(ctx context.Context) (*Simulation, error) {
	res, err := r.ComputeRIR(ctx)
	if err != nil {
		return nil, err
	}

	sources := r.Sources()

	offsets := make([]int, len(sources))
	n := 0
	for i, src := range sources {
		if len(src.Signal) == 0 {
			continue
		}

		offsets[i] = int(math.Round(src.Delay * res.sampleRate))
		for j := 0; j < res.NumMics(); j++ {
			n = max(n, offsets[i]+len(src.Signal)+len(res.At(i, j))-1)
		}
	}

	if n == 0 {
		return nil, fmt.Errorf("%w: no source has a signal", ErrEmptyResult)
	}

	signals := make([][]float64, res.NumMics())
	for j := range signals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		signals[j] = make([]float64, n)
		for i, src := range sources {
			if len(src.Signal) == 0 {
				continue
			}
			if err := conv.ConvolveAddTo(signals[j], offsets[i], src.Signal, res.At(i, j)); err != nil {
				return nil, fmt.Errorf("room: %s: %w", Key(i, j), err)
			}
		}
	}

	return &Simulation{RIR: res, Signals: signals}, nil
}
