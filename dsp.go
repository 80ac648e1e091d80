package main

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// powerSpectrum returns the one-sided spectrum of a real DAC channel in dBFS,
// fftSize/2 bins from DC up to just below Nyquist. Input shorter than
// fftSize is zero padded; fftSize must be a power of two.
func powerSpectrum(samples []float64, fftSize int) []float64 {
	// Blackman window and its sum for normalization
	window := make([]float64, fftSize)
	windowSum := 0.0
	for i := 0; i < fftSize; i++ {
		window[i] = 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)) +
			0.08*math.Cos(4*math.Pi*float64(i)/float64(fftSize-1))
		windowSum += window[i]
	}

	windowed := make([]float64, fftSize)
	for i := 0; i < fftSize && i < len(samples); i++ {
		windowed[i] = samples[i] * window[i]
	}

	coeffs := fourier.NewFFT(fftSize).Coefficients(nil, windowed)

	// A full-scale real sine splits its energy between the positive and
	// negative bin, so it peaks at windowSum/2.
	reference := windowSum / 2

	half := fftSize / 2
	result := make([]float64, half)
	for i := 0; i < half; i++ {
		mag := cmplx.Abs(coeffs[i])
		if mag > 0 {
			result[i] = 20 * math.Log10(mag/reference)
		} else {
			result[i] = -150.0
		}
	}

	return result
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
