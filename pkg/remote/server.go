package remote

import (
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/logutil"
)

// Handler runs one simulation on the simulator side of the connection. A
// returned error is sent to the client as a RemoteSimulationError.
type Handler interface {
	Simulate(ctx context.Context, req *Request) (*Payload, error)
}

type HandlerFunc func(ctx context.Context, req *Request) (*Payload, error)

func (f HandlerFunc) Simulate(ctx context.Context, req *Request) (*Payload, error) {
	return f(ctx, req)
}

// Serve accepts connections on ln until ctx is done, answering each with
// one Response and closing it. It always returns a non-nil error.
func Serve(ctx context.Context, ln net.Listener, h Handler) error {
	logger := logutil.GetLogger()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "accept")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveConn(ctx, conn, h); err != nil {
				logger.Warn("simulation session failed",
					zap.String("peer", conn.RemoteAddr().String()), zap.Error(err))
			}
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, h Handler) error {
	defer conn.Close()

	var req Request
	if err := gob.NewDecoder(conn).Decode(&req); err != nil {
		return errors.Wrap(err, "decode request")
	}

	var resp Response
	payload, err := h.Simulate(ctx, &req)
	if err != nil {
		resp.Err = &WireError{Type: fmt.Sprintf("%T", err), Message: err.Error()}
	} else if payload != nil {
		stamped := *payload
		stamped.Present = presentFields(payload)
		resp.Payload = &stamped
	}

	return errors.Wrap(gob.NewEncoder(conn).Encode(&resp), "encode response")
}
