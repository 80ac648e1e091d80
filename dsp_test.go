package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerSpectrumPeaksAtToneBin(t *testing.T) {
	const fftSize = 1024
	const sampleRate = 8e9
	// Exactly bin 64.
	freq := 64 * sampleRate / fftSize

	tone := generateTone(fftSize, freq, sampleRate, 1)
	spectrum := powerSpectrum(tone, fftSize)
	require.Len(t, spectrum, fftSize/2)

	peak := 0
	for i, v := range spectrum {
		if v > spectrum[peak] {
			peak = i
		}
	}
	assert.Equal(t, 64, peak)
	assert.InDelta(t, 0.0, spectrum[peak], 0.1, "full-scale tone reads 0 dBFS")
	assert.Less(t, spectrum[200], -60.0)
}

func TestPowerSpectrumOfSilence(t *testing.T) {
	spectrum := powerSpectrum(make([]float64, 16), 16)
	for _, v := range spectrum {
		assert.Equal(t, -150.0, v)
	}

	// Short input is zero padded.
	spectrum = powerSpectrum([]float64{1}, 8)
	assert.Len(t, spectrum, 4)
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.True(t, isPowerOfTwo(1))
	assert.True(t, isPowerOfTwo(4096))
	assert.False(t, isPowerOfTwo(0))
	assert.False(t, isPowerOfTwo(1000))
}
