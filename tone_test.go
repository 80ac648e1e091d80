package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qcsim/wavesim/pkg/remote"
)

func TestGenerateTone(t *testing.T) {
	// Quarter of the sample rate: 1, 0, -1, 0, ...
	tone := generateTone(8, 250e6, 1e9, 0.5)
	expected := []float64{0.5, 0, -0.5, 0, 0.5, 0, -0.5, 0}
	for i := range expected {
		assert.InDelta(t, expected[i], tone[i], 1e-9)
	}
}

func TestGenerateToneStaysInADCRange(t *testing.T) {
	tone := generateTone(4096, 123.4e6, 2e9, 3)
	for _, v := range tone {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}

	_, err := remote.PrepareADC(tone, 0)
	assert.NoError(t, err)
}
