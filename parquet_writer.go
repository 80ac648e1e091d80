package main

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/segmentio/parquet-go"

	"github.com/qcsim/wavesim/pkg/backend"
)

// WaveSample is one DAC sample of one channel (long format, so the schema
// does not depend on the channel count).
type WaveSample struct {
	Channel int32   `parquet:"channel"`
	Index   int64   `parquet:"index"`
	Time    float64 `parquet:"time"`
	Value   float64 `parquet:"value"`
}

// NewParquetWriter creates a generic parquet writer with our schema and metadata
func NewParquetWriter(w io.Writer, config *Config, out *backend.Output) *parquet.GenericWriter[WaveSample] {
	// Serialize config to JSON string for metadata
	configStr := "{}"
	if config != nil {
		b, _ := json.Marshal(config)
		configStr = string(b)
	}

	return parquet.NewGenericWriter[WaveSample](w,
		parquet.KeyValueMetadata("config", configStr),
		parquet.KeyValueMetadata("backend", out.Backend.String()),
		parquet.KeyValueMetadata("readout_marker", strconv.Itoa(out.ReadoutMarker)),
	)
}

// WriteOutput writes every channel of out, one row per sample, then closes
// the parquet writer. w itself is left open.
func WriteOutput(w io.Writer, config *Config, out *backend.Output) (int, error) {
	writer := NewParquetWriter(w, config, out)

	dacRate := config.Hardware.DACSampleRate
	const rowsPerBatch = 8192
	rows := make([]WaveSample, 0, rowsPerBatch)
	total := 0

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		n, err := writer.Write(rows)
		total += n
		rows = rows[:0]
		return err
	}

	for ch := 0; ch < out.Buffer.Channels; ch++ {
		for i, v := range out.Buffer.Channel(ch) {
			rows = append(rows, WaveSample{
				Channel: int32(ch),
				Index:   int64(i),
				Time:    float64(i) / dacRate,
				Value:   v,
			})
			if len(rows) == rowsPerBatch {
				if err := flush(); err != nil {
					writer.Close()
					return total, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		writer.Close()
		return total, err
	}

	return total, writer.Close()
}
