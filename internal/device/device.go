// Package device selects the audio input device used for capture.
package device

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeviceNotFound means no input device name contains the requested substring.
	ErrDeviceNotFound = errors.New("input device not found")
	// ErrNoDefaultDevice means the host reports no default input device.
	ErrNoDefaultDevice = errors.New("no default input device")
)

// Error carries the requested device name alongside the cause.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("resolve default input device: %v", e.Err)
	}
	return fmt.Sprintf("resolve input device %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Device describes one audio input device.
type Device struct {
	Name                string
	HostAPI             string
	DefaultSampleRate   float64
	MaxInputChannels    int
	DefaultSampleFormat string
	IsDefault           bool

	// native is the backend handle, opaque to callers.
	native any
}

// Native returns the backend specific handle the device was built from.
func (d Device) Native() any { return d.native }

// Host enumerates input devices of an audio subsystem.
type Host interface {
	// InputDevices lists devices with at least one input channel, in host order.
	InputDevices() ([]Device, error)
	// DefaultInputDevice returns ErrNoDefaultDevice when the host has none.
	DefaultInputDevice() (Device, error)
}

// Resolver picks a device by name substring or falls back to the default.
type Resolver struct {
	host Host
}

// NewResolver creates a new Resolver instance.
func NewResolver(host Host) *Resolver {
	return &Resolver{host: host}
}

// Resolve returns the first input device whose name contains name
// (case-sensitive, host order). An empty name selects the default input device.
func (r *Resolver) Resolve(name string) (Device, error) {
	if name == "" {
		dev, err := r.host.DefaultInputDevice()
		if err != nil {
			if !errors.Is(err, ErrNoDefaultDevice) {
				err = fmt.Errorf("%w: %w", ErrNoDefaultDevice, err)
			}
			return Device{}, &Error{Err: err}
		}
		return dev, nil
	}

	devices, err := r.host.InputDevices()
	if err != nil {
		return Device{}, &Error{Name: name, Err: fmt.Errorf("enumerate devices: %w", err)}
	}
	for _, dev := range devices {
		if strings.Contains(dev.Name, name) {
			return dev, nil
		}
	}
	return Device{}, &Error{Name: name, Err: ErrDeviceNotFound}
}

// List returns every input device in host order.
func (r *Resolver) List() ([]Device, error) {
	devices, err := r.host.InputDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return devices, nil
}
