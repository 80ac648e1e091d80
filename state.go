package main

import (
	"sync"
	"time"

	"github.com/qcsim/wavesim/pkg/backend"
)

// ServerState is shared between the HTTP handlers and the websocket feed.
type ServerState struct {
	mu sync.RWMutex

	cfg  Config
	orch *backend.Orchestrator

	// Last simulation
	Last   *backend.Output
	LastAt time.Time

	// Stream config from client
	StreamMode string // "raw", "fft", "both"
	Channel    int
	FFTSize    int
}

func newServerState(cfg Config) *ServerState {
	return &ServerState{
		cfg:        cfg,
		orch:       backend.New(cfg.Backend, cfg.Hardware, nil),
		StreamMode: "both",
		FFTSize:    cfg.Server.FFTSize,
	}
}

// setBackend swaps the orchestrator for one built from bc. Runs already in
// flight keep the orchestrator they started with.
func (s *ServerState) setBackend(bc backend.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Backend = bc.WithDefaults()
	s.orch = backend.New(s.cfg.Backend, s.cfg.Hardware, nil)
}

func (s *ServerState) orchestrator() *backend.Orchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch
}

func (s *ServerState) storeResult(out *backend.Output) {
	s.mu.Lock()
	s.Last = out
	s.LastAt = time.Now()
	s.mu.Unlock()
}
