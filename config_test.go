package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcsim/wavesim/pkg/backend"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, backend.Local, cfg.Backend.Kind)
	assert.Equal(t, "localhost:9100", cfg.Backend.Remote.Address)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultFFTSize, cfg.Server.FFTSize)
	assert.Equal(t, defaultMaxDuration, cfg.Server.MaxDuration)
	assert.Equal(t, 16.0, cfg.Hardware.SamplesPerTick)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigFile(t *testing.T) {
	doc := `
hardware:
  clockPeriod: 4.0e-9
  samplesPerTick: 8
backend:
  kind: remote
  remote:
    address: rtlsim:9100
    timeout: 2m
    adcDelay: 12
server:
  port: 9090
debug: true
`
	path := filepath.Join(t.TempDir(), "wavesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4e-9, cfg.Hardware.ClockPeriod)
	assert.Equal(t, 8.0, cfg.Hardware.SamplesPerTick)
	assert.Equal(t, backend.Remote, cfg.Backend.Kind)
	assert.Equal(t, "rtlsim:9100", cfg.Backend.Remote.Address)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Remote.Timeout)
	assert.Equal(t, 12, cfg.Backend.Remote.ADCDelay)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, defaultFFTSize, cfg.Server.FFTSize)
	assert.True(t, cfg.Debug)

	_, err = loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigHardwareFile(t *testing.T) {
	dir := t.TempDir()
	timing := "clockPeriod: 1.0e-9\nsamplesPerTick: 4\ndacSampleRate: 4.0e9\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timing.yaml"), []byte(timing), 0644))

	doc := "hardwareFile: timing.yaml\nhardware:\n  samplesPerTick: 99\n"
	path := filepath.Join(dir, "wavesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1e-9, cfg.Hardware.ClockPeriod)
	assert.Equal(t, 4.0, cfg.Hardware.SamplesPerTick)
	assert.Equal(t, 4e9, cfg.Hardware.DACSampleRate)
	assert.InDelta(t, 1e9, cfg.Hardware.ClockFreq, 1e-3)

	require.NoError(t, os.WriteFile(path, []byte("hardwareFile: missing.yaml\n"), 0644))
	_, err = loadConfig(path)
	assert.Error(t, err)
}
