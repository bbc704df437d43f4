package device

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSampleFormat is the sample format every PortAudio stream in this
// program is opened with.
const PortAudioSampleFormat = "f32"

// PortAudioHost enumerates devices through PortAudio. Open must be called
// before any other method and balanced by Close.
type PortAudioHost struct {
	mu     sync.Mutex
	opened bool
}

// NewPortAudioHost creates a host that has not been initialized yet.
func NewPortAudioHost() *PortAudioHost {
	return &PortAudioHost{}
}

// Open initializes PortAudio.
func (h *PortAudioHost) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opened {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	h.opened = true
	return nil
}

// Close terminates PortAudio. It is safe to call more than once.
func (h *PortAudioHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened {
		return nil
	}
	h.opened = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate portaudio: %w", err)
	}
	return nil
}

func (h *PortAudioHost) InputDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		dev := fromPortAudio(info)
		dev.IsDefault = info.Name == defaultName
		devices = append(devices, dev)
	}
	return devices, nil
}

func (h *PortAudioHost) DefaultInputDevice() (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrNoDefaultDevice, err)
	}
	if info == nil || info.MaxInputChannels <= 0 {
		return Device{}, ErrNoDefaultDevice
	}
	dev := fromPortAudio(info)
	dev.IsDefault = true
	return dev, nil
}

func fromPortAudio(info *portaudio.DeviceInfo) Device {
	dev := Device{
		Name:                info.Name,
		DefaultSampleRate:   info.DefaultSampleRate,
		MaxInputChannels:    info.MaxInputChannels,
		DefaultSampleFormat: PortAudioSampleFormat,
		native:              info,
	}
	if info.HostApi != nil {
		dev.HostAPI = info.HostApi.Name
	}
	return dev
}

// PortAudioInfo returns the PortAudio device behind d, if any.
func PortAudioInfo(d Device) (*portaudio.DeviceInfo, bool) {
	info, ok := d.native.(*portaudio.DeviceInfo)
	return info, ok
}
