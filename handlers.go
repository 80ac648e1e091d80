package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/backend"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/program"
	"github.com/qcsim/wavesim/pkg/remote"
)

type resultFrame struct {
	Type          string    `json:"type"`
	Backend       string    `json:"backend"`
	Channels      int       `json:"channels"`
	Samples       int       `json:"samples"`
	ReadoutMarker int       `json:"readout_marker"`
	Channel       int       `json:"channel"`
	X             []int     `json:"x,omitempty"`
	Y             []float64 `json:"y,omitempty"`
	Spectrum      []float64 `json:"spectrum,omitempty"`
	SpectrumBinHz float64   `json:"spectrum_bin_hz,omitempty"`
}

type frameOptions struct {
	Mode    string
	Channel int
	FFTSize int
	// Samples past the readout marker shown when Upper is unset.
	Margin  int
	DACRate float64

	Lower      int
	Upper      *int
	DownSample int
}

// buildFrame cuts the display window out of one channel: [Lower, Upper),
// with Upper defaulting to readout marker + Margin, every DownSample-th
// sample. The spectrum is taken from the start of the same window.
func buildFrame(out *backend.Output, opts frameOptions) (*resultFrame, error) {
	row := out.Buffer.Channel(opts.Channel)
	if row == nil {
		return nil, errors.Errorf("channel %d out of range [0, %d)", opts.Channel, out.Buffer.Channels)
	}

	lower := opts.Lower
	if lower < 0 {
		lower = 0
	}
	upper := out.ReadoutMarker + opts.Margin
	if opts.Upper != nil {
		upper = *opts.Upper
	}
	if upper > len(row) {
		upper = len(row)
	}
	if lower > upper {
		lower = upper
	}
	step := opts.DownSample
	if step < 1 {
		step = 1
	}

	frame := &resultFrame{
		Type:          "result",
		Backend:       out.Backend.String(),
		Channels:      out.Buffer.Channels,
		Samples:       out.Buffer.Samples,
		ReadoutMarker: out.ReadoutMarker,
		Channel:       opts.Channel,
	}

	if opts.Mode != "fft" {
		frame.X = make([]int, 0, (upper-lower+step-1)/step)
		frame.Y = make([]float64, 0, cap(frame.X))
		for i := lower; i < upper; i += step {
			frame.X = append(frame.X, i)
			frame.Y = append(frame.Y, row[i])
		}
	}
	if opts.Mode != "raw" && isPowerOfTwo(opts.FFTSize) && opts.FFTSize > 1 {
		frame.Spectrum = powerSpectrum(row[lower:], opts.FFTSize)
		frame.SpectrumBinHz = opts.DACRate / float64(opts.FFTSize)
	}

	return frame, nil
}

// API Handlers

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", 405)
		return
	}
	logger := logutil.GetLogger()

	bundle, err := program.LoadBundle(r.Body)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	job := backend.Job{
		Compiled:     bundle.Compiled,
		Assembled:    bundle.Assembled,
		CaptureDemod: r.URL.Query().Get("demod") == "true",
	}
	if v := r.URL.Query().Get("duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d < 0 || math.IsNaN(d) {
			http.Error(w, "Invalid duration", 400)
			return
		}
		s.state.mu.RLock()
		maxDuration := s.state.cfg.Server.MaxDuration
		s.state.mu.RUnlock()
		if d > maxDuration {
			http.Error(w, fmt.Sprintf("Duration %g s exceeds the %g s limit", d, maxDuration), 400)
			return
		}
		job.Duration = &d
	}

	out, err := s.state.orchestrator().Dispatch(r.Context(), job)
	if err != nil {
		logger.Error("simulation failed", zap.Error(err))
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	s.state.storeResult(out)

	// Broadcast to all clients
	if frame, ok := s.currentFrame(); ok {
		s.broadcast(frame)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"backend":        out.Backend.String(),
		"channels":       out.Buffer.Channels,
		"samples":        out.Buffer.Samples,
		"readout_marker": out.ReadoutMarker,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	last := s.state.Last
	opts := frameOptions{
		Mode:    "raw",
		Margin:  s.state.cfg.Server.ReadoutMargin,
		DACRate: s.state.cfg.Hardware.DACSampleRate,
		FFTSize: s.state.FFTSize,
	}
	s.state.mu.RUnlock()

	if last == nil {
		http.Error(w, "No simulation result yet", 404)
		return
	}

	q := r.URL.Query()
	var err error
	if opts.Channel, err = intParam(q.Get("channel"), 0); err != nil {
		http.Error(w, "Invalid channel", 400)
		return
	}
	if opts.Lower, err = intParam(q.Get("lower"), 0); err != nil {
		http.Error(w, "Invalid lower bound", 400)
		return
	}
	if v := q.Get("upper"); v != "" {
		upper, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid upper bound", 400)
			return
		}
		opts.Upper = &upper
	}
	if opts.DownSample, err = intParam(q.Get("down_sample"), 1); err != nil {
		http.Error(w, "Invalid down_sample", 400)
		return
	}
	if m := q.Get("mode"); m == "fft" || m == "both" {
		opts.Mode = m
	}

	frame, err := buildFrame(last, opts)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	json.NewEncoder(w).Encode(frame)
}

func (s *Server) handleBackend(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.state.mu.RLock()
		bc := s.state.cfg.Backend
		s.state.mu.RUnlock()
		json.NewEncoder(w).Encode(bc)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", 405)
		return
	}

	var req struct {
		Kind    backend.Kind `json:"kind"`
		Address string       `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	s.state.mu.RLock()
	bc := s.state.cfg.Backend
	s.state.mu.RUnlock()

	bc.Kind = req.Kind
	if req.Address != "" {
		bc.Remote.Address = req.Address
	}
	s.state.setBackend(bc)

	s.broadcast(map[string]interface{}{
		"type":    "backend_update",
		"backend": bc.Kind.String(),
	})

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"backend": bc.Kind.String(),
		"address": bc.Remote.Address,
	})
}

func statusFor(err error) int {
	var te *remote.TransportError
	var re *remote.RemoteSimulationError
	switch {
	case errors.Is(err, remote.ErrInvalidInputRange), errors.Is(err, backend.ErrMissingProgram):
		return http.StatusBadRequest
	case errors.As(err, &te) && te.Timeout:
		return http.StatusGatewayTimeout
	case errors.As(err, &te), errors.As(err, &re), errors.Is(err, remote.ErrMalformedResult):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
