package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleBuffer is one capture callback's worth of channel-interleaved float32
// samples. It is never mutated after creation.
type SampleBuffer []float32

// EncodedFrame is the wire payload for exactly one SampleBuffer.
type EncodedFrame []byte

// CopyBuffer returns a SampleBuffer that owns a copy of samples. Capture
// backends reuse their callback slices, so the copy is what gets queued.
func CopyBuffer(samples []float32) SampleBuffer {
	buf := make(SampleBuffer, len(samples))
	copy(buf, samples)
	return buf
}

// EncodeFrame converts buf to little-endian IEEE-754 bytes, four per sample,
// preserving sample order.
func EncodeFrame(buf SampleBuffer) EncodedFrame {
	out := make(EncodedFrame, len(buf)*BytesPerSample)
	for i, s := range buf {
		binary.LittleEndian.PutUint32(out[i*BytesPerSample:], math.Float32bits(s))
	}
	return out
}

// DecodeFrame is the inverse of EncodeFrame.
func DecodeFrame(frame EncodedFrame) (SampleBuffer, error) {
	if len(frame)%BytesPerSample != 0 {
		return nil, fmt.Errorf("frame length %d is not a multiple of %d bytes", len(frame), BytesPerSample)
	}
	buf := make(SampleBuffer, len(frame)/BytesPerSample)
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(frame[i*BytesPerSample:]))
	}
	return buf, nil
}
