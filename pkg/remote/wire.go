package remote

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"

	"github.com/qcsim/wavesim/pkg/program"
)

// Request is the session request sent to the simulator: the asm_prog,
// nsamples, capture_demod and adc_stream entries of the wire mapping.
type Request struct {
	AsmProg      *program.Assembled
	NSamples     int
	CaptureDemod bool
	// Device fixed-point samples, already padded. Nil when no stream is
	// injected.
	ADCStream []int16
}

// Fields records which payload entries the sender set. gob omits empty
// slices, so without it a zero-channel dac_out is indistinguishable from a
// missing one.
type Fields uint8

const (
	FieldDACOut Fields = 1 << iota
	FieldAcc
	FieldRDLO
	FieldRDLOxADC
)

// Payload is a successful simulation: dac_out, acc and, when demodulation
// capture was requested, rdlo and rdlo_x_adc.
type Payload struct {
	DACOut   [][]float64
	Acc      [][]int64
	RDLO     [][]complex128
	RDLOxADC [][]complex128

	// Set by Serve from the non-nil entries above.
	Present Fields
}

func presentFields(p *Payload) Fields {
	var f Fields
	if p.DACOut != nil {
		f |= FieldDACOut
	}
	if p.Acc != nil {
		f |= FieldAcc
	}
	if p.RDLO != nil {
		f |= FieldRDLO
	}
	if p.RDLOxADC != nil {
		f |= FieldRDLOxADC
	}
	return f
}

// checkPayload verifies that every entry the request implies was sent and
// restores entries that were sent empty.
func checkPayload(p *Payload, captureDemod bool) error {
	if p.Present&FieldDACOut == 0 {
		return errors.Wrap(ErrMalformedResult, "missing dac_out")
	}
	if p.Present&FieldAcc == 0 {
		return errors.Wrap(ErrMalformedResult, "missing acc")
	}
	if captureDemod && p.Present&(FieldRDLO|FieldRDLOxADC) != FieldRDLO|FieldRDLOxADC {
		return errors.Wrap(ErrMalformedResult, "missing demodulated streams")
	}

	if p.DACOut == nil {
		p.DACOut = [][]float64{}
	}
	if p.Acc == nil {
		p.Acc = [][]int64{}
	}
	if captureDemod && p.RDLO == nil {
		p.RDLO = [][]complex128{}
	}
	if captureDemod && p.RDLOxADC == nil {
		p.RDLOxADC = [][]complex128{}
	}
	return nil
}

// WireError is the simulator's error in serialized form.
type WireError struct {
	Type    string
	Message string
}

// Response is the tagged result: exactly one of Err and Payload is set.
type Response struct {
	Err     *WireError
	Payload *Payload
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeResponse turns the bytes read up to end-of-stream into a payload or
// the error the peer reported.
func decodeResponse(data []byte) (*Payload, error) {
	var resp Response
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrIncomplete
		}
		return nil, errors.Wrap(ErrMalformedResult, err.Error())
	}

	switch {
	case resp.Err != nil:
		return nil, &RemoteSimulationError{Type: resp.Err.Type, Message: resp.Err.Message}
	case resp.Payload == nil:
		return nil, errors.Wrap(ErrMalformedResult, "neither result nor error")
	}
	return resp.Payload, nil
}
