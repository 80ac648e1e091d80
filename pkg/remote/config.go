package remote

import "time"

const (
	defaultAddress    = "localhost:9100"
	defaultTimeout    = 60 * time.Second
	defaultRecvBuffer = 64 * 1024
)

type Config struct {
	// host:port of the simulator.
	Address string `yaml:"address"`
	// Bound on one whole round trip, connect to close.
	Timeout time.Duration `yaml:"timeout"`
	// Zero samples inserted ahead of an injected ADC stream.
	ADCDelay int `yaml:"adcDelay"`
	// Socket receive buffer in bytes.
	RecvBuffer int `yaml:"recvBuffer"`
}

// WithDefaults returns a copy of the Config with any missing fields set to
// their default values.
func (c Config) WithDefaults() Config {
	cpy := c
	if cpy.Address == "" {
		cpy.Address = defaultAddress
	}
	if cpy.Timeout <= 0 {
		cpy.Timeout = defaultTimeout
	}
	if cpy.ADCDelay < 0 {
		cpy.ADCDelay = 0
	}
	if cpy.RecvBuffer == 0 {
		cpy.RecvBuffer = defaultRecvBuffer
	}
	return cpy
}
