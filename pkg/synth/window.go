package synth

import (
	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/program"
)

// Window is the time span covered by an output buffer.
type Window struct {
	// Tick mapped to sample 0.
	OriginTick     int64
	SampleCount    int
	SamplesPerTick float64
}

// Size computes the simulation window. With an explicit duration (seconds)
// the window starts at tick 0 and the program is not inspected. Otherwise it
// spans from the earliest pulse start to the latest pulse end, ignoring
// readout-LO pulses; a program without such pulses yields an empty window.
func Size(prog *program.Compiled, duration *float64, t hwconfig.Timing) Window {
	w := Window{SamplesPerTick: t.SamplesPerTick}

	if duration != nil {
		w.SampleCount = max(0, int(float64(t.LengthTicks(*duration))*t.SamplesPerTick))
		return w
	}

	found := false
	var first, last int64
	for _, ops := range prog.Program {
		for _, op := range ops {
			if op.Dest == program.DestReadoutLO {
				continue
			}
			end := op.StartTime + t.LengthTicks(op.Env.Width())
			if !found {
				first, last = op.StartTime, end
				found = true
				continue
			}
			if op.StartTime < first {
				first = op.StartTime
			}
			if end > last {
				last = end
			}
		}
	}
	if !found {
		return w
	}

	w.OriginTick = first
	w.SampleCount = max(0, int(float64(last-first)*t.SamplesPerTick))
	return w
}
