package audio_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-audio-sender/pkg/audio"
)

func TestEncodeFrame_KnownValues(t *testing.T) {
	tests := map[string]struct {
		input audio.SampleBuffer
		want  []byte
	}{
		"empty": {
			input: audio.SampleBuffer{},
			want:  []byte{},
		},
		"one": {
			input: audio.SampleBuffer{1.0},
			want:  []byte{0x00, 0x00, 0x80, 0x3f},
		},
		"negative_half": {
			input: audio.SampleBuffer{-0.5},
			want:  []byte{0x00, 0x00, 0x00, 0xbf},
		},
		"order_preserved": {
			input: audio.SampleBuffer{0, 1.0, -0.5},
			want: []byte{
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x80, 0x3f,
				0x00, 0x00, 0x00, 0xbf,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := audio.EncodeFrame(tt.input)
			assert.Equal(t, tt.want, []byte(got))
		})
	}
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{0, 1, 3, 1024, 2048} {
		buf := make(audio.SampleBuffer, n)
		for i := range buf {
			buf[i] = rng.Float32()*2 - 1
		}

		frame := audio.EncodeFrame(buf)
		require.Len(t, frame, 4*n)

		decoded, err := audio.DecodeFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, buf, decoded)
	}
}

func TestEncodeFrame_SpecialValuesKeepTheirBits(t *testing.T) {
	buf := audio.SampleBuffer{
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
		float32(math.Copysign(0, -1)),
		math.Float32frombits(0x7fc00001), // NaN with payload
		math.SmallestNonzeroFloat32,
	}

	decoded, err := audio.DecodeFrame(audio.EncodeFrame(buf))
	require.NoError(t, err)
	require.Len(t, decoded, len(buf))
	for i := range buf {
		assert.Equal(t, math.Float32bits(buf[i]), math.Float32bits(decoded[i]), "sample %d", i)
	}
}

func TestEncodeFrame_StereoInterleaving(t *testing.T) {
	// L,R,L,R
	buf := audio.SampleBuffer{0.25, -0.25, 0.5, -0.5}
	frame := audio.EncodeFrame(buf)

	decoded, err := audio.DecodeFrame(frame[8:16])
	require.NoError(t, err)
	assert.Equal(t, audio.SampleBuffer{0.5, -0.5}, decoded)
}

func TestDecodeFrame_RejectsPartialSample(t *testing.T) {
	_, err := audio.DecodeFrame(audio.EncodedFrame{1, 2, 3})
	assert.Error(t, err)
}

func TestCopyBuffer_DetachesFromSource(t *testing.T) {
	src := []float32{0.1, 0.2}
	buf := audio.CopyBuffer(src)
	src[0] = 9

	assert.Equal(t, audio.SampleBuffer{0.1, 0.2}, buf)
}

func TestFormat_Sizes(t *testing.T) {
	f := audio.Format{SampleRate: audio.DefaultSampleRate, Channels: 2, BufferSize: audio.DefaultBufferSize}

	assert.Equal(t, 2048, f.SamplesPerBuffer())
	assert.Equal(t, 8192, f.FrameBytes())
}
