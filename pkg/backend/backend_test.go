package backend

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/program"
	"github.com/qcsim/wavesim/pkg/remote"
)

var testTiming = hwconfig.Timing{ClockPeriod: 2e-9, SamplesPerTick: 16}

// fakeToolchain emits one square drive pulse per gate on qubit 0 and a
// readout pulse for "read".
type fakeToolchain struct {
	compileErr error
}

func (f *fakeToolchain) Compile(_ context.Context, c Circuit) (*program.Compiled, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	prog := &program.Compiled{Program: make(map[program.Target][]program.PulseOp)}
	tick := int64(0)
	for _, g := range c {
		dest := program.DestDrive
		if g.Name == "read" {
			dest = program.DestReadoutDrive
		}
		target := program.Target{Qubit: 0, Role: dest.String()}
		prog.Program[target] = append(prog.Program[target], program.PulseOp{
			StartTime: tick,
			Dest:      dest,
			Env:       program.Envelope{Kind: "square", Params: map[string]float64{"twidth": 16e-9}},
			Amp:       1 << 30,
		})
		tick += 8
	}
	return prog, nil
}

func (f *fakeToolchain) Assemble(_ context.Context, prog *program.Compiled) (*program.Assembled, error) {
	return &program.Assembled{Cores: map[string]program.CoreBuffers{
		"Q0": {Command: []byte{byte(len(prog.Program))}},
	}}, nil
}

var circuit = Circuit{{Name: "X90", Qubits: []string{"Q0"}}, {Name: "read", Qubits: []string{"Q0"}}}

func startSimulator(t *testing.T, h remote.HandlerFunc) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		remote.Serve(ctx, ln, h)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func TestSimulateLocal(t *testing.T) {
	o := New(Config{Kind: Local}, testTiming, &fakeToolchain{})

	out, err := o.Simulate(context.Background(), circuit, nil)
	require.NoError(t, err)
	assert.Equal(t, Local, out.Backend)
	assert.Nil(t, out.Remote)
	assert.Equal(t, 1, out.Buffer.Channels)
	assert.Equal(t, 16*16, out.Buffer.Samples)
	assert.Equal(t, 8*16, out.ReadoutMarker)
}

func TestSimulateRemote(t *testing.T) {
	var nsamples int
	addr := startSimulator(t, func(_ context.Context, req *remote.Request) (*remote.Payload, error) {
		nsamples = req.NSamples
		return &remote.Payload{DACOut: [][]float64{{0.1, 0.2, 0.3}}, Acc: [][]int64{{4}}}, nil
	})

	cfg := Config{Kind: Remote, Remote: remote.Config{Address: addr, Timeout: 5 * time.Second}}
	o := New(cfg, testTiming, &fakeToolchain{})

	out, err := o.Simulate(context.Background(), circuit, nil)
	require.NoError(t, err)
	assert.Equal(t, 8000, nsamples, "remote runs default to one microsecond")
	assert.Equal(t, Remote, out.Backend)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, out.Buffer.Channel(0))
	assert.Equal(t, 8*16, out.ReadoutMarker)
	require.NotNil(t, out.Remote)
	assert.Equal(t, [][]int64{{4}}, out.Remote.Acc)

	d := 2e-9
	_, err = o.Simulate(context.Background(), circuit, &d)
	require.NoError(t, err)
	assert.Equal(t, 16, nsamples)
}

func TestRemoteErrorsPropagateUnchanged(t *testing.T) {
	addr := startSimulator(t, func(context.Context, *remote.Request) (*remote.Payload, error) {
		return nil, errors.New("simulation diverged")
	})

	cfg := Config{Kind: Remote, Remote: remote.Config{Address: addr, Timeout: 5 * time.Second}}
	_, err := New(cfg, testTiming, &fakeToolchain{}).Simulate(context.Background(), circuit, nil)

	require.IsType(t, &remote.RemoteSimulationError{}, err)
	assert.Equal(t, "simulation diverged", err.(*remote.RemoteSimulationError).Message)

	cfg.Remote.Address = "127.0.0.1:1"
	_, err = New(cfg, testTiming, &fakeToolchain{}).Simulate(context.Background(), circuit, nil)
	assert.IsType(t, &remote.TransportError{}, err)
}

func TestToolchainErrors(t *testing.T) {
	boom := errors.New("unknown gate")
	o := New(Config{}, testTiming, &fakeToolchain{compileErr: boom})

	_, err := o.Simulate(context.Background(), circuit, nil)
	assert.ErrorIs(t, err, boom)

	_, err = New(Config{}, testTiming, nil).Simulate(context.Background(), circuit, nil)
	assert.Error(t, err)
}

func TestDispatchNeedsMatchingProgram(t *testing.T) {
	_, err := New(Config{Kind: Local}, testTiming, nil).Dispatch(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrMissingProgram)

	_, err = New(Config{Kind: Remote}, testTiming, nil).Dispatch(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrMissingProgram)
}

func TestKindFromYAML(t *testing.T) {
	var cfg Config
	doc := "kind: remote\nremote:\n  address: sim:9100\n  timeout: 30s\n"
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	assert.Equal(t, Remote, cfg.Kind)
	assert.Equal(t, "sim:9100", cfg.Remote.Address)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)

	assert.Error(t, yaml.Unmarshal([]byte("kind: quantum\n"), &cfg))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("")))
	assert.Equal(t, Local, k)
	assert.Equal(t, "remote", Remote.String())
}
