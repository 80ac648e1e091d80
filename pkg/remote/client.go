// Package remote talks to a cycle-accurate hardware-in-the-loop simulator.
//
// One call is one TCP connection: the client writes a single gob-encoded
// Request and reads until the peer closes the connection. End of stream is
// the message boundary; there is no length prefix.
package remote

import (
	"context"
	"io"
	"math"
	"net"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/program"
)

const (
	// ADCTailSamples zero samples follow an injected stream so the
	// demodulation kernels settle.
	ADCTailSamples = 64
	adcFullScale   = math.MaxInt16
)

// Result is a decoded simulation together with its time axes.
type Result struct {
	DACOut   [][]float64
	Acc      [][]int64
	RDLO     [][]complex128
	RDLOxADC [][]complex128

	// Sample times in seconds at the DAC and the ADC rate.
	DACTimes []float64
	ADCTimes []float64
}

type Client struct {
	cfg    Config
	timing hwconfig.Timing
}

func NewClient(cfg Config, t hwconfig.Timing) *Client {
	return &Client{cfg: cfg.WithDefaults(), timing: t.WithDefaults()}
}

func (c *Client) Config() Config {
	return c.cfg
}

// NSamples converts a duration in seconds to DAC samples.
func (c *Client) NSamples(duration float64) int {
	return int(math.Floor(duration*c.timing.DACSampleRate + 1e-6))
}

// Run simulates asm for duration seconds. adc, when non-nil, is a
// normalized analog input stream injected at the ADC. With captureDemod the
// result also carries the demodulated I/Q streams.
func (c *Client) Run(ctx context.Context, asm *program.Assembled, duration float64, adc []float64, captureDemod bool) (*Result, error) {
	if duration < 0 || math.IsNaN(duration) {
		return nil, errors.Wrapf(ErrInvalidInputRange, "duration %g", duration)
	}
	req := &Request{
		AsmProg:      asm,
		NSamples:     c.NSamples(duration),
		CaptureDemod: captureDemod,
	}
	if adc != nil {
		stream, err := PrepareADC(adc, c.cfg.ADCDelay)
		if err != nil {
			return nil, err
		}
		req.ADCStream = stream
	}

	blob, err := encode(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	data, err := c.roundTrip(ctx, blob)
	if err != nil {
		return nil, err
	}

	payload, err := decodeResponse(data)
	if err != nil {
		if errors.Is(err, ErrIncomplete) {
			return nil, transportError("read", c.cfg.Address, err)
		}
		return nil, err
	}
	if err := checkPayload(payload, captureDemod); err != nil {
		return nil, err
	}

	res := &Result{
		DACOut: payload.DACOut,
		Acc:    payload.Acc,
	}
	if captureDemod {
		res.RDLO = payload.RDLO
		res.RDLOxADC = payload.RDLOxADC
	}
	res.DACTimes, res.ADCTimes = c.timeAxes(payload.DACOut)

	return res, nil
}

func (c *Client) roundTrip(ctx context.Context, blob []byte) ([]byte, error) {
	logger := logutil.GetLogger().With(
		zap.String("session", uuid.NewString()),
		zap.String("addr", c.cfg.Address))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		logger.Error("connect failed", zap.Error(err))
		return nil, transportError("dial", c.cfg.Address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Unblock the read if the caller cancels.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	tuneConn(conn, c.cfg.RecvBuffer)

	start := time.Now()
	if _, err := conn.Write(blob); err != nil {
		logger.Error("send failed", zap.Error(err))
		return nil, transportError("write", c.cfg.Address, contextCause(ctx, err))
	}
	logger.Debug("request sent", zap.String("size", humanize.Bytes(uint64(len(blob)))))

	data, err := io.ReadAll(conn)
	if err != nil {
		logger.Error("receive failed", zap.Error(err), zap.Int("received", len(data)))
		return nil, transportError("read", c.cfg.Address, contextCause(ctx, err))
	}
	logger.Debug("response received",
		zap.String("size", humanize.Bytes(uint64(len(data)))),
		zap.Duration("elapsed", time.Since(start)))

	return data, nil
}

// contextCause prefers the context's error once it is done, so a
// cancellation is not reported as an i/o timeout.
func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, err.Error())
	}
	return err
}

func (c *Client) timeAxes(dacOut [][]float64) ([]float64, []float64) {
	n := 0
	if len(dacOut) > 0 {
		n = len(dacOut[0])
	}

	dac := make([]float64, n)
	for i := range dac {
		dac[i] = float64(i) / c.timing.DACSampleRate
	}

	nadc := int(float64(n) * c.timing.ADCSampleRate / c.timing.DACSampleRate)
	adc := make([]float64, nadc)
	for i := range adc {
		adc[i] = float64(i) / c.timing.ADCSampleRate
	}
	return dac, adc
}

// PrepareADC validates a normalized stream and converts it to the device's
// 16-bit fixed point, padded with delay leading zeros and ADCTailSamples
// trailing zeros.
func PrepareADC(stream []float64, delay int) ([]int16, error) {
	for i, v := range stream {
		if math.IsNaN(v) || v < -1 || v > 1 {
			return nil, errors.Wrapf(ErrInvalidInputRange, "sample %d is %g", i, v)
		}
	}

	if delay < 0 {
		delay = 0
	}
	out := make([]int16, delay+len(stream)+ADCTailSamples)
	for i, v := range stream {
		out[delay+i] = int16(math.Round(v * adcFullScale))
	}
	return out, nil
}
