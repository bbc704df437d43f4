package audio

// Format constants shared by the capture and sender layers.
const (
	// Capture defaults.
	DefaultSampleRate = 16_000 // Hz
	DefaultChannels   = 1      // mono
	DefaultBufferSize = 1024   // frames per capture callback

	// Wire format: little-endian IEEE-754 float32, channel-interleaved.
	BytesPerSample = 4
)

// Format describes the shape of a capture stream. Receivers must be
// configured with the same values out of band.
type Format struct {
	SampleRate int
	Channels   int
	BufferSize int
}

// SamplesPerBuffer returns the number of interleaved samples in one full
// capture buffer.
func (f Format) SamplesPerBuffer() int {
	return f.BufferSize * f.Channels
}

// FrameBytes returns the encoded size of one full capture buffer.
func (f Format) FrameBytes() int {
	return f.SamplesPerBuffer() * BytesPerSample
}
