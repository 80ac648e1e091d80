// Package backend picks between the local synthesizer and the remote
// simulator and gives both the same result shape.
package backend

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/program"
	"github.com/qcsim/wavesim/pkg/remote"
	"github.com/qcsim/wavesim/pkg/synth"
)

// DefaultRemoteDuration is simulated when a remote run gives no duration.
const DefaultRemoteDuration = 1e-6

var ErrMissingProgram = errors.New("program not available for backend")

// Gate is one circuit instruction, e.g. {Name: "X90", Qubits: ["Q0"]}.
type Gate struct {
	Name   string             `json:"name"`
	Qubits []string           `json:"qubit"`
	Params map[string]float64 `json:"params,omitempty"`
}

type Circuit []Gate

// Toolchain compiles circuits into the two program granularities. It is
// provided by the caller.
type Toolchain interface {
	Compile(ctx context.Context, c Circuit) (*program.Compiled, error)
	Assemble(ctx context.Context, prog *program.Compiled) (*program.Assembled, error)
}

// Job is one simulation request against already compiled programs.
type Job struct {
	Compiled  *program.Compiled
	Assembled *program.Assembled
	// Seconds; nil lets the backend choose.
	Duration *float64

	// Remote only.
	ADCStream    []float64
	CaptureDemod bool
}

// Output is the backend-independent result.
type Output struct {
	Backend       Kind
	Buffer        *synth.OutputBuffer
	ReadoutMarker int

	// Set only by the remote backend.
	Remote *remote.Result
}

type Orchestrator struct {
	cfg       Config
	timing    hwconfig.Timing
	toolchain Toolchain
	local     *synth.Synthesizer
	remote    *remote.Client
}

func New(cfg Config, t hwconfig.Timing, tc Toolchain) *Orchestrator {
	cfg = cfg.WithDefaults()
	t = t.WithDefaults()
	return &Orchestrator{
		cfg:       cfg,
		timing:    t,
		toolchain: tc,
		local:     synth.NewSynthesizer(t),
		remote:    remote.NewClient(cfg.Remote, t),
	}
}

func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Simulate compiles and assembles circuit and runs it on the configured
// backend. Backend errors are returned unchanged.
func (o *Orchestrator) Simulate(ctx context.Context, c Circuit, duration *float64) (*Output, error) {
	if o.toolchain == nil {
		return nil, errors.New("no toolchain configured")
	}

	compiled, err := o.toolchain.Compile(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}
	assembled, err := o.toolchain.Assemble(ctx, compiled)
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	return o.Dispatch(ctx, Job{Compiled: compiled, Assembled: assembled, Duration: duration})
}

// Dispatch runs job on the configured backend.
func (o *Orchestrator) Dispatch(ctx context.Context, job Job) (*Output, error) {
	logger := logutil.GetLogger().With(zap.Stringer("backend", o.cfg.Kind))

	switch o.cfg.Kind {
	case Local:
		if job.Compiled == nil {
			return nil, errors.Wrap(ErrMissingProgram, "local backend needs a compiled program")
		}
		res, err := o.local.Run(job.Compiled, job.Duration)
		if err != nil {
			return nil, err
		}
		logger.Info("simulation finished",
			zap.Int("channels", res.Buffer.Channels),
			zap.Int("samples", res.Buffer.Samples))
		return &Output{Backend: Local, Buffer: res.Buffer, ReadoutMarker: res.ReadoutMarker}, nil

	case Remote:
		if job.Assembled == nil {
			return nil, errors.Wrap(ErrMissingProgram, "remote backend needs an assembled program")
		}
		duration := DefaultRemoteDuration
		if job.Duration != nil {
			duration = *job.Duration
		}
		res, err := o.remote.Run(ctx, job.Assembled, duration, job.ADCStream, job.CaptureDemod)
		if err != nil {
			return nil, err
		}
		out := &Output{
			Backend:       Remote,
			Buffer:        synth.FromRows(res.DACOut),
			ReadoutMarker: o.readoutMarker(job.Compiled),
			Remote:        res,
		}
		logger.Info("simulation finished",
			zap.Int("channels", out.Buffer.Channels),
			zap.Int("samples", out.Buffer.Samples))
		return out, nil

	default:
		return nil, errors.Errorf("unknown backend %v", o.cfg.Kind)
	}
}

// readoutMarker places the latest readout-drive pulse on the remote
// simulator's time base, which starts at tick 0.
func (o *Orchestrator) readoutMarker(prog *program.Compiled) int {
	if prog == nil {
		return 0
	}
	marker := 0
	for _, ops := range prog.Program {
		for _, op := range ops {
			if op.Dest != program.DestReadoutDrive {
				continue
			}
			if offset := int(float64(op.StartTime) * o.timing.SamplesPerTick); offset > marker {
				marker = offset
			}
		}
	}
	return marker
}
