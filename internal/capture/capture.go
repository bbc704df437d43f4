// Package capture opens live audio input streams and hands every buffer to a
// caller supplied callback without blocking the audio thread.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Raikerian/go-audio-sender/internal/device"
	"github.com/Raikerian/go-audio-sender/pkg/audio"
)

// errorBacklog is how many asynchronous stream errors are held for the
// reader before further ones are dropped.
const errorBacklog = 16

// Params is the requested stream configuration.
type Params struct {
	SampleRate int
	Channels   int
	// BufferSize is the number of frames per callback.
	BufferSize int
}

// ParamsFromFormat converts an audio format into stream parameters.
func ParamsFromFormat(f audio.Format) Params {
	return Params{SampleRate: f.SampleRate, Channels: f.Channels, BufferSize: f.BufferSize}
}

func (p Params) validate() error {
	if p.SampleRate <= 0 || p.Channels <= 0 || p.BufferSize <= 0 {
		return fmt.Errorf("invalid stream parameters %+v", p)
	}
	return nil
}

// Error reports a stream that could not be opened or started.
type Error struct {
	Device string
	Params Params
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("open capture on %q (%d Hz, %d ch, %d frames): %v",
		e.Device, e.Params.SampleRate, e.Params.Channels, e.Params.BufferSize, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StreamError is an asynchronous problem reported by a running stream.
// It never stops capture.
type StreamError struct {
	// Kind is a short stable label such as "input_overflow".
	Kind string
	Err  error
}

func (e *StreamError) Error() string { return fmt.Sprintf("capture stream %s: %v", e.Kind, e.Err) }

func (e *StreamError) Unwrap() error { return e.Err }

// Stream is a live, opened input stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend opens streams on a concrete audio subsystem. onData runs on the
// audio thread and receives a slice that is only valid for the duration of
// the call. onError may also run on the audio thread.
type Backend interface {
	Open(dev device.Device, p Params, onData func([]float32), onError func(error)) (Stream, error)
}

// Source starts capture streams.
type Source struct {
	backend Backend
}

// NewSource creates a new Source instance.
func NewSource(backend Backend) *Source {
	return &Source{backend: backend}
}

// Start opens and starts a stream on dev. onBuffer is called on the audio
// thread with a private copy of every buffer and must not block.
func (s *Source) Start(dev device.Device, p Params, onBuffer func(audio.SampleBuffer)) (*Handle, error) {
	if err := p.validate(); err != nil {
		return nil, &Error{Device: dev.Name, Params: p, Err: err}
	}

	h := &Handle{errs: make(chan error, errorBacklog)}
	onData := func(in []float32) {
		onBuffer(audio.CopyBuffer(in))
	}

	stream, err := s.backend.Open(dev, p, onData, h.report)
	if err != nil {
		return nil, &Error{Device: dev.Name, Params: p, Err: err}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, &Error{Device: dev.Name, Params: p, Err: fmt.Errorf("start stream: %w", err)}
	}
	h.stream = stream
	return h, nil
}

// Handle controls a running stream.
type Handle struct {
	stream Stream

	mu      sync.Mutex
	errs    chan error
	closed  bool
	once    sync.Once
	release error
}

func (h *Handle) report(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	select {
	case h.errs <- err:
	default:
	}
}

// Errors delivers asynchronous stream errors. It is closed by Release.
func (h *Handle) Errors() <-chan error {
	return h.errs
}

// Release stops hardware callbacks and frees the stream. No callback runs
// after Release returns. It is safe to call more than once.
func (h *Handle) Release() error {
	h.once.Do(func() {
		stopErr := h.stream.Stop()
		closeErr := h.stream.Close()
		if stopErr != nil {
			stopErr = fmt.Errorf("stop stream: %w", stopErr)
		}
		if closeErr != nil {
			closeErr = fmt.Errorf("close stream: %w", closeErr)
		}
		h.release = errors.Join(stopErr, closeErr)

		h.mu.Lock()
		h.closed = true
		close(h.errs)
		h.mu.Unlock()
	})
	return h.release
}
