package capture

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/Raikerian/go-audio-sender/internal/device"
)

var (
	errNotPortAudioDevice = errors.New("device was not enumerated by PortAudio")

	errInputOverflow  = errors.New("input overflow, samples were discarded by the driver")
	errInputUnderflow = errors.New("input underflow")
)

// PortAudioBackend opens float32 input streams through PortAudio.
type PortAudioBackend struct{}

// NewPortAudioBackend creates a new PortAudioBackend instance.
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

func (b *PortAudioBackend) Open(dev device.Device, p Params, onData func([]float32), onError func(error)) (Stream, error) {
	info, ok := device.PortAudioInfo(dev)
	if !ok {
		return nil, errNotPortAudioDevice
	}

	sp := portaudio.LowLatencyParameters(info, nil)
	sp.Input.Channels = p.Channels
	sp.Output.Channels = 0
	sp.SampleRate = float64(p.SampleRate)
	sp.FramesPerBuffer = p.BufferSize

	callback := func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.InputOverflow != 0 {
			onError(&StreamError{Kind: "input_overflow", Err: errInputOverflow})
		}
		if flags&portaudio.InputUnderflow != 0 {
			onError(&StreamError{Kind: "input_underflow", Err: errInputUnderflow})
		}
		onData(in)
	}

	stream, err := portaudio.OpenStream(sp, callback)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
