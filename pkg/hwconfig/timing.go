package hwconfig

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultClockPeriod    = 2.e-9
	defaultSamplesPerTick = 16
	defaultDACSampleRate  = 8.e9
	defaultADCSampleRate  = 2.e9
)

// Timing carries the hardware timing parameters the synthesizer and the
// remote client need from the channel configuration.
type Timing struct {
	// FPGA clock period in seconds. One tick of a pulse start time.
	ClockPeriod float64 `yaml:"clockPeriod"`
	// Clock frequency used for the carrier continuity term. Defaults to
	// 1/ClockPeriod.
	ClockFreq float64 `yaml:"clockFreq"`
	// DAC samples emitted per clock tick, after interpolation.
	SamplesPerTick float64 `yaml:"samplesPerTick"`
	DACSampleRate  float64 `yaml:"dacSampleRate"`
	ADCSampleRate  float64 `yaml:"adcSampleRate"`
}

// WithDefaults returns a copy of the Timing with any missing fields set to
// their default values.
func (t Timing) WithDefaults() Timing {
	cpy := t
	if cpy.ClockPeriod == 0 {
		cpy.ClockPeriod = defaultClockPeriod
	}
	if cpy.ClockFreq == 0 {
		cpy.ClockFreq = 1 / cpy.ClockPeriod
	}
	if cpy.SamplesPerTick == 0 {
		cpy.SamplesPerTick = defaultSamplesPerTick
	}
	if cpy.DACSampleRate == 0 {
		cpy.DACSampleRate = defaultDACSampleRate
	}
	if cpy.ADCSampleRate == 0 {
		cpy.ADCSampleRate = defaultADCSampleRate
	}
	return cpy
}

// LengthTicks converts a duration in seconds to whole clock ticks, rounding
// up. Negative durations are zero ticks.
func (t Timing) LengthTicks(seconds float64) int64 {
	ticks := int64(math.Ceil(seconds/t.ClockPeriod - 1e-9))
	if ticks < 0 {
		return 0
	}
	return ticks
}

// LengthSamples converts a duration in seconds to DAC samples through
// LengthTicks, so envelopes always cover an integer number of ticks.
func (t Timing) LengthSamples(seconds float64) int {
	return int(float64(t.LengthTicks(seconds)) * t.SamplesPerTick)
}

// LoadTiming reads a YAML file holding a Timing document.
func LoadTiming(path string) (Timing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Timing{}, errors.Wrap(err, "load timing")
	}

	var t Timing
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Timing{}, errors.Wrap(err, "load timing")
	}

	return t.WithDefaults(), nil
}
