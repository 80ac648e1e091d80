package backend

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/qcsim/wavesim/pkg/remote"
)

// Kind selects the simulation backend.
type Kind int

const (
	// Local evaluates pulses analytically in process.
	Local Kind = iota
	// Remote forwards the assembled program to a hardware-in-the-loop
	// simulator.
	Remote
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "local":
		*k = Local
	case "remote":
		*k = Remote
	default:
		return errors.Errorf("unknown backend %q", string(text))
	}
	return nil
}

// Config is the backend choice. Remote is only read when Kind is Remote.
type Config struct {
	Kind   Kind          `yaml:"kind" json:"kind"`
	Remote remote.Config `yaml:"remote" json:"remote"`
}

// WithDefaults returns a copy of the Config with any missing fields set to
// their default values.
func (c Config) WithDefaults() Config {
	cpy := c
	cpy.Remote = cpy.Remote.WithDefaults()
	return cpy
}
