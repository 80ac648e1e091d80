package synth

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/qcsim/wavesim/pkg/envelope"
	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/program"
)

// PlacementPolicy decides how a pulse combines with samples already in its
// span.
type PlacementPolicy int

const (
	// Overwrite keeps the later write where pulses overlap on one channel.
	Overwrite PlacementPolicy = iota
	// Accumulate sums overlapping pulses.
	Accumulate
)

func (p PlacementPolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Accumulate:
		return "accumulate"
	default:
		return "unknown"
	}
}

// Placer writes modulated pulses into one output buffer and tracks the
// readout marker.
type Placer struct {
	Timing hwconfig.Timing
	Window Window
	Buffer *OutputBuffer
	// Zero value is Overwrite.
	Policy PlacementPolicy

	// Largest placement offset of any readout-drive pulse.
	ReadoutMarker int
}

// Place renders op and writes it at its offset in the window. Readout-LO
// pulses are skipped. Writes outside the buffer are clipped.
func (p *Placer) Place(op program.PulseOp) error {
	if op.Dest == program.DestReadoutLO {
		return nil
	}

	offset := int(float64(op.StartTime-p.Window.OriginTick) * p.Window.SamplesPerTick)

	penv, err := envelope.Render(op.Env, p.Timing)
	if err != nil {
		return err
	}
	floats.Scale(float64(op.Amp)/program.FullScale, penv)

	// The first term keeps the carrier continuous across pulses starting
	// at different ticks; the second is the per-sample mixer ramp. The two
	// use Freq with different implied units. Kept literal.
	phase := op.Phase + float64(op.StartTime)*(op.Freq/p.Timing.ClockFreq)
	step := 2 * math.Pi / p.Window.SamplesPerTick

	row := p.Buffer.Channel(op.Channel)
	written := 0
	for n, v := range penv {
		idx := offset + n
		if row == nil || idx < 0 || idx >= len(row) {
			continue
		}
		sample := v * math.Cos(op.Freq*step*float64(n)+phase)
		if p.Policy == Accumulate {
			row[idx] += sample
		} else {
			row[idx] = sample
		}
		written++
	}

	if written < len(penv) {
		logutil.GetLogger().Warn("pulse clipped to window",
			zap.Int("channel", op.Channel),
			zap.Int64("start_tick", op.StartTime),
			zap.Int("offset", offset),
			zap.Int("length", len(penv)),
			zap.Int("written", written))
	}

	if op.Dest == program.DestReadoutDrive && offset > p.ReadoutMarker {
		p.ReadoutMarker = offset
	}

	return nil
}
