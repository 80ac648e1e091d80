package program

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrInvalidWidth is returned for a pulse whose envelope width is negative.
var ErrInvalidWidth = errors.New("invalid envelope width")

type jsonOp struct {
	Op        string   `json:"op"`
	StartTime int64    `json:"start_time"`
	Dest      string   `json:"dest"`
	Env       Envelope `json:"env"`
	Amp       int64    `json:"amp"`
	Phase     float64  `json:"phase"`
	Freq      float64  `json:"freq"`
}

type jsonTarget struct {
	Qubit int      `json:"qubit"`
	Role  string   `json:"role"`
	Ops   []jsonOp `json:"ops"`
}

type jsonProgram struct {
	Targets   []jsonTarget `json:"targets"`
	Assembled *Assembled   `json:"assembled,omitempty"`
}

// Bundle is a program in both granularities. Assembled is nil when the
// source carried no assembler output.
type Bundle struct {
	Compiled  *Compiled
	Assembled *Assembled
}

// LoadBundle decodes the JSON form of a compiled program and, when present,
// its "assembled" section. Only "pulse" ops are kept; timing and control ops
// carry no DAC output.
func LoadBundle(r io.Reader) (*Bundle, error) {
	var doc jsonProgram
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode compiled program")
	}

	prog := &Compiled{Program: make(map[Target][]PulseOp)}
	for _, jt := range doc.Targets {
		if jt.Qubit < 0 {
			return nil, errors.Errorf("target %q: negative qubit index %d", jt.Role, jt.Qubit)
		}
		target := Target{Qubit: jt.Qubit, Role: jt.Role}
		ops := prog.Program[target]
		for _, jo := range jt.Ops {
			if jo.Op != "" && jo.Op != "pulse" {
				continue
			}
			if w := jo.Env.Width(); w < 0 {
				return nil, errors.Wrapf(ErrInvalidWidth, "target %d/%s at tick %d: twidth %g", jt.Qubit, jt.Role, jo.StartTime, w)
			}
			ops = append(ops, PulseOp{
				Channel:   jt.Qubit,
				StartTime: jo.StartTime,
				Dest:      ParseDest(jo.Dest),
				Env:       jo.Env,
				Amp:       jo.Amp,
				Phase:     jo.Phase,
				Freq:      jo.Freq,
			})
		}
		prog.Program[target] = ops
	}

	return &Bundle{Compiled: prog, Assembled: doc.Assembled}, nil
}

// LoadCompiled is LoadBundle without the assembler output.
func LoadCompiled(r io.Reader) (*Compiled, error) {
	b, err := LoadBundle(r)
	if err != nil {
		return nil, err
	}
	return b.Compiled, nil
}

// LoadBundleFile reads a program bundle from a JSON file.
func LoadBundleFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open compiled program")
	}
	defer f.Close()

	return LoadBundle(f)
}
