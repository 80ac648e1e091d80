// Package synth is the local analytic backend: it evaluates pulse envelopes
// and carrier modulation directly in the time domain.
package synth

import (
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/program"
)

// Result is the output of one local synthesis run.
type Result struct {
	Buffer        *OutputBuffer
	Window        Window
	ReadoutMarker int
}

// Synthesizer predicts DAC output from a compiled program.
type Synthesizer struct {
	timing hwconfig.Timing

	// Policy for overlapping pulses. Defaults to Overwrite.
	Policy PlacementPolicy
}

func NewSynthesizer(t hwconfig.Timing) *Synthesizer {
	return &Synthesizer{timing: t.WithDefaults()}
}

func (s *Synthesizer) Timing() hwconfig.Timing {
	return s.timing
}

// Run synthesizes every channel of prog. duration is in seconds; nil sizes
// the window to the program's pulses. The only error is an envelope shape
// the generator does not know.
func (s *Synthesizer) Run(prog *program.Compiled, duration *float64) (*Result, error) {
	logger := logutil.GetLogger()

	w := Size(prog, duration, s.timing)
	p := &Placer{
		Timing: s.timing,
		Window: w,
		Buffer: NewOutputBuffer(prog.Channels(), w.SampleCount),
		Policy: s.Policy,
	}

	npulses := 0
	for _, target := range prog.Targets() {
		for _, op := range prog.Program[target] {
			if err := p.Place(op); err != nil {
				return nil, err
			}
			npulses++
		}
	}

	logger.Debug("local synthesis done",
		zap.Int("channels", p.Buffer.Channels),
		zap.Int("samples", w.SampleCount),
		zap.Int64("origin_tick", w.OriginTick),
		zap.Int("ops", npulses),
		zap.Int("readout_marker", p.ReadoutMarker))

	return &Result{Buffer: p.Buffer, Window: w, ReadoutMarker: p.ReadoutMarker}, nil
}
