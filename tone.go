package main

import "math"

// generateTone synthesizes a normalized cosine for injection at the ADC.
//
// A 32-bit phase accumulator (DDS) maps the full circle to [0, 2^32), so the
// phase never drifts over long streams the way repeated float wrapping does.
func generateTone(nsamples int, freq, sampleRate, amplitude float64) []float64 {
	if amplitude > 1 {
		amplitude = 1
	}
	if amplitude < 0 {
		amplitude = 0
	}

	// Tuning Word = (Target / SampleRate) * 2^32
	tuningWord := uint32(int64(math.Round(freq/sampleRate*4294967296.0)) & 0xffffffff)

	out := make([]float64, nsamples)
	var phaseAcc uint32
	for i := range out {
		rads := float64(phaseAcc) * (2.0 * math.Pi / 4294967296.0)
		out[i] = amplitude * math.Cos(rads)
		phaseAcc += tuningWord
	}
	return out
}
