package synth

// OutputBuffer holds the DAC samples of every channel, all of the same
// length. A synthesis run owns it until it is returned.
type OutputBuffer struct {
	Channels int
	Samples  int
	Data     [][]float64
}

// NewOutputBuffer allocates a zeroed channels x samples buffer. Negative
// sizes are treated as zero.
func NewOutputBuffer(channels, samples int) *OutputBuffer {
	channels, samples = max(0, channels), max(0, samples)
	data := make([][]float64, channels)
	backing := make([]float64, channels*samples)
	for i := range data {
		data[i] = backing[i*samples : (i+1)*samples : (i+1)*samples]
	}
	return &OutputBuffer{Channels: channels, Samples: samples, Data: data}
}

// Channel returns the samples of channel ch, or nil if it is out of range.
func (b *OutputBuffer) Channel(ch int) []float64 {
	if ch < 0 || ch >= b.Channels {
		return nil
	}
	return b.Data[ch]
}

// FromRows wraps an existing row-major buffer, as returned by the remote
// simulator. Rows shorter than the longest one are zero-extended.
func FromRows(rows [][]float64) *OutputBuffer {
	samples := 0
	for _, r := range rows {
		if len(r) > samples {
			samples = len(r)
		}
	}

	buf := NewOutputBuffer(len(rows), samples)
	for i, r := range rows {
		copy(buf.Data[i], r)
	}
	return buf
}
