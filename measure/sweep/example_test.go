package sweep_test

import (
	"fmt"

	"github.com/cwbudde/algo-room/measure/sweep"
)

func ExampleLogSweep_Deconvolve() {
	s := &sweep.LogSweep{StartFreq: 100, EndFreq: 7000, Duration: 0.5, SampleRate: 16000}

	excitation, err := s.Generate()
	if err != nil {
		panic(err)
	}

	// Direct sound plus one reflection 100 samples later.
	response := make([]float64, len(excitation)+200)
	for i, v := range excitation {
		response[i] += v
		response[i+100] += 0.3 * v
	}

	ir, err := s.Deconvolve(response, 200)
	if err != nil {
		panic(err)
	}

	fmt.Printf("sweep: %d samples\n", s.Len())
	fmt.Printf("direct: %.1f\n", ir[0])
	fmt.Printf("reflection: %.1f\n", ir[100])

	// Output:
	// sweep: 8000 samples
	// direct: 1.0
	// reflection: 0.3
}
