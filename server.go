package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/logutil"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation API and the websocket result feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runServer(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", defaultPort, "Port to listen on")
}

type Client struct {
	conn *websocket.Conn
	send chan interface{}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Server publishes simulation results to websocket clients.
type Server struct {
	state *ServerState

	clientsMu sync.RWMutex
	clients   map[*Client]bool

	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	return &Server{
		state:   newServerState(cfg),
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/result", s.handleResult)
	mux.HandleFunc("/api/backend", s.handleBackend)

	// WebSocket streaming endpoint
	mux.HandleFunc("/ws", s.handleWS)

	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := logutil.GetLogger()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	logger.Info("client connected", zap.String("remote", r.RemoteAddr))

	client := &Client{conn: conn, send: make(chan interface{}, 16)}

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()

	go client.writePump()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client)
		s.clientsMu.Unlock()
		close(client.send) // This will stop writePump
		logger.Info("client disconnected", zap.String("remote", r.RemoteAddr))
	}()

	// Late joiners get the latest result right away.
	if frame, ok := s.currentFrame(); ok {
		client.send <- frame
	}

	// Handle incoming config messages from client (read pump)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var config struct {
			Mode    string `json:"mode"`
			Channel *int   `json:"channel"`
			FFTSize int    `json:"fft_size"`
		}
		if err := json.Unmarshal(msg, &config); err != nil {
			continue
		}

		s.state.mu.Lock()
		switch config.Mode {
		case "raw", "fft", "both":
			s.state.StreamMode = config.Mode
		}
		if config.Channel != nil && *config.Channel >= 0 {
			s.state.Channel = *config.Channel
		}
		if isPowerOfTwo(config.FFTSize) {
			s.state.FFTSize = config.FFTSize
		}
		s.state.mu.Unlock()

		if frame, ok := s.currentFrame(); ok {
			select {
			case client.send <- frame:
			default:
			}
		}
	}
}

// currentFrame renders the latest result with the current stream settings.
func (s *Server) currentFrame() (*resultFrame, bool) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if s.state.Last == nil {
		return nil, false
	}
	opts := frameOptions{
		Mode:       s.state.StreamMode,
		Channel:    s.state.Channel,
		FFTSize:    s.state.FFTSize,
		Margin:     s.state.cfg.Server.ReadoutMargin,
		DACRate:    s.state.cfg.Hardware.DACSampleRate,
		DownSample: 1,
	}
	frame, err := buildFrame(s.state.Last, opts)
	if err != nil {
		return nil, false
	}
	return frame, true
}

func (s *Server) broadcast(msg interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (s *Server) clientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// runServer starts the API and websocket server and blocks until ctx is done.
func runServer(ctx context.Context, cfg Config) error {
	logger := logutil.GetLogger()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: NewServer(cfg).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("simulation server listening",
		zap.String("url", fmt.Sprintf("http://localhost%s", srv.Addr)),
		zap.Stringer("backend", cfg.Backend.Kind))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
