package remote

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidInputRange is returned when an injected ADC stream leaves
	// [-1, 1] or the duration is negative. It is checked before any
	// connection is opened.
	ErrInvalidInputRange = errors.New("input out of range")
	// ErrMalformedResult is returned when the response decodes but lacks
	// fields the request asked for.
	ErrMalformedResult = errors.New("malformed simulation result")
	// ErrIncomplete marks a response cut short by the peer.
	ErrIncomplete = errors.New("connection closed before a complete message")
)

// RemoteSimulationError is a failure reported by the simulator itself,
// carried over the wire in place of a result.
type RemoteSimulationError struct {
	Type    string
	Message string
}

func (e *RemoteSimulationError) Error() string {
	if e.Type == "" {
		return "remote simulation: " + e.Message
	}
	return fmt.Sprintf("remote simulation: %s: %s", e.Type, e.Message)
}

// TransportError covers connection failures, short reads and timeouts.
type TransportError struct {
	Op      string
	Addr    string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Timeout {
		return "timeout: " + msg
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportError(op, addr string, err error) *TransportError {
	te := &TransportError{Op: op, Addr: addr, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		te.Timeout = true
	}
	return te
}
