package program

import (
	"sort"
	"strings"
)

// FullScale is the fixed-point normalization of PulseOp.Amp.
const FullScale = 1 << 31

// Dest is the destination role of a pulse.
type Dest int

const (
	DestOther Dest = iota
	DestDrive
	DestReadoutDrive
	// DestReadoutLO pulses are demodulation references. They never reach
	// the DAC.
	DestReadoutLO
)

var destNames = map[Dest]string{
	DestOther:        "other",
	DestDrive:        "qdrv",
	DestReadoutDrive: "rdrv",
	DestReadoutLO:    "rdlo",
}

func (d Dest) String() string {
	return destNames[d]
}

// ParseDest maps a compiler destination such as "Q0.rdrv" to its role.
func ParseDest(s string) Dest {
	switch {
	case strings.Contains(s, "rdlo"):
		return DestReadoutLO
	case strings.Contains(s, "rdrv"):
		return DestReadoutDrive
	case strings.Contains(s, "qdrv"):
		return DestDrive
	default:
		return DestOther
	}
}

// Envelope describes a baseband pulse shape.
type Envelope struct {
	Kind   string             `json:"env_func"`
	Params map[string]float64 `json:"paradict"`
}

// Width returns the twidth parameter in seconds.
func (e Envelope) Width() float64 {
	return e.Params["twidth"]
}

// Param returns a shape parameter, or def when it is absent.
func (e Envelope) Param(name string, def float64) float64 {
	if v, ok := e.Params[name]; ok {
		return v
	}
	return def
}

// PulseOp is one compiled pulse instruction.
type PulseOp struct {
	Channel int
	// Absolute start in FPGA clock ticks.
	StartTime int64
	Dest      Dest
	Env       Envelope
	// Signed fraction of FullScale.
	Amp int64
	// Radians.
	Phase float64
	// Device-native units.
	Freq float64
}

// Target identifies the channel a pulse sequence is compiled for.
type Target struct {
	Qubit int
	Role  string
}

// Compiled is the pulse-level program consumed by the local synthesizer.
// It must not be modified once handed to a backend.
type Compiled struct {
	Program map[Target][]PulseOp
}

// Targets returns the program's targets in a stable order.
func (c *Compiled) Targets() []Target {
	targets := make([]Target, 0, len(c.Program))
	for t := range c.Program {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Qubit != targets[j].Qubit {
			return targets[i].Qubit < targets[j].Qubit
		}
		return targets[i].Role < targets[j].Role
	})
	return targets
}

// Channels returns the number of output channels: highest qubit index + 1.
func (c *Compiled) Channels() int {
	n := 0
	for t := range c.Program {
		if t.Qubit+1 > n {
			n = t.Qubit + 1
		}
	}
	return n
}

// CoreBuffers are the memory images the assembler produces for one
// processor core.
type CoreBuffers struct {
	Command   []byte `json:"cmd_buf"`
	Envelope  []byte `json:"env_buffers"`
	Frequency []byte `json:"freq_buffers"`
}

// Assembled is the instruction-level program consumed by the remote
// simulator. Its content is opaque to this module.
type Assembled struct {
	Cores map[string]CoreBuffers `json:"cores"`
}
