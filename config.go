package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/qcsim/wavesim/pkg/backend"
	"github.com/qcsim/wavesim/pkg/hwconfig"
)

const (
	defaultPort          = 8080
	defaultFFTSize       = 1024
	defaultReadoutMargin = 3000
	// 800k samples per channel at 8 GS/s.
	defaultMaxDuration = 100e-6
)

type ServerConfig struct {
	Port int `yaml:"port"`
	// FFT length used for spectrum frames. Power of two.
	FFTSize int `yaml:"fftSize"`
	// Samples shown past the readout marker when no upper bound is given.
	ReadoutMargin int `yaml:"readoutMargin"`
	// Longest simulated time, in seconds, a request may ask for.
	MaxDuration float64 `yaml:"maxDuration"`
}

// WithDefaults returns a copy of the ServerConfig with any missing fields
// set to their default values.
func (c ServerConfig) WithDefaults() ServerConfig {
	cpy := c
	if cpy.Port == 0 {
		cpy.Port = defaultPort
	}
	if cpy.FFTSize == 0 {
		cpy.FFTSize = defaultFFTSize
	}
	if cpy.ReadoutMargin == 0 {
		cpy.ReadoutMargin = defaultReadoutMargin
	}
	if cpy.MaxDuration <= 0 {
		cpy.MaxDuration = defaultMaxDuration
	}
	return cpy
}

type Config struct {
	// Timing document shared with other tools. Relative paths are resolved
	// against the config file's directory; when set it replaces Hardware.
	HardwareFile string          `yaml:"hardwareFile"`
	Hardware     hwconfig.Timing `yaml:"hardware"`
	Backend      backend.Config  `yaml:"backend"`
	Server       ServerConfig    `yaml:"server"`
	Debug        bool            `yaml:"debug"`
}

// WithDefaults returns a copy of the Config with any missing fields set to
// their default values.
func (c Config) WithDefaults() Config {
	cpy := c
	cpy.Hardware = cpy.Hardware.WithDefaults()
	cpy.Backend = cpy.Backend.WithDefaults()
	cpy.Server = cpy.Server.WithDefaults()
	return cpy
}

// loadConfig reads a YAML config file. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg.WithDefaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}

	if cfg.HardwareFile != "" {
		timingPath := cfg.HardwareFile
		if !filepath.IsAbs(timingPath) {
			timingPath = filepath.Join(filepath.Dir(path), timingPath)
		}
		if cfg.Hardware, err = hwconfig.LoadTiming(timingPath); err != nil {
			return Config{}, err
		}
	}

	return cfg.WithDefaults(), nil
}
