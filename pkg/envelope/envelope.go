// Package envelope renders baseband pulse shapes.
package envelope

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/program"
)

var ErrUnknownShape = errors.New("unknown envelope shape")

// Func fills an n-sample envelope from the descriptor's parameters.
type Func func(n int, env program.Envelope) []float64

var (
	shapesMu sync.RWMutex
	shapes   = map[string]Func{
		"square":          square,
		"gaussian":        gaussian,
		"drag":            gaussian,
		"cos_edge_square": cosEdgeSquare,
		"hann":            hann,
	}
)

// Register adds or replaces a shape.
func Register(kind string, f Func) {
	shapesMu.Lock()
	shapes[kind] = f
	shapesMu.Unlock()
}

// Render evaluates env over its width. The length is the width rounded up
// to whole clock ticks, times the samples per tick.
func Render(env program.Envelope, t hwconfig.Timing) ([]float64, error) {
	shapesMu.RLock()
	f, ok := shapes[env.Kind]
	shapesMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownShape, "%q", env.Kind)
	}

	n := t.LengthSamples(env.Width())
	if n <= 0 {
		return []float64{}, nil
	}
	return f(n, env), nil
}

func square(n int, _ program.Envelope) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// gaussian spans +/- sigmas standard deviations around the pulse center.
// drag renders through here too: only its real (in-phase) part reaches
// a single DAC channel.
func gaussian(n int, env program.Envelope) []float64 {
	sigmas := env.Param("sigmas", 3)
	sigma := float64(n) / (2 * sigmas)
	center := float64(n-1) / 2

	out := make([]float64, n)
	for i := range out {
		x := (float64(i) - center) / sigma
		out[i] = math.Exp(-0.5 * x * x)
	}
	return out
}

func cosEdgeSquare(n int, env program.Envelope) []float64 {
	ramp := int(env.Param("ramp_fraction", 0.25) * float64(n))
	if ramp*2 > n {
		ramp = n / 2
	}

	out := make([]float64, n)
	for i := range out {
		switch {
		case i < ramp:
			out[i] = 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(ramp)))
		case i >= n-ramp:
			out[i] = 0.5 * (1 - math.Cos(math.Pi*float64(n-1-i)/float64(ramp)))
		default:
			out[i] = 1
		}
	}
	return out
}

func hann(n int, _ program.Envelope) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	for i := range out {
		out[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return out
}
