// Package pipeline runs one capture-to-network streaming session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/go-audio-sender/internal/capture"
	"github.com/Raikerian/go-audio-sender/internal/config"
	"github.com/Raikerian/go-audio-sender/internal/device"
	"github.com/Raikerian/go-audio-sender/internal/observe"
	"github.com/Raikerian/go-audio-sender/internal/sender"
	"github.com/Raikerian/go-audio-sender/pkg/audio"
	"github.com/Raikerian/go-audio-sender/pkg/util"
)

// ErrAlreadyStarted is returned by Start on a running session.
var ErrAlreadyStarted = errors.New("session already started")

// SessionParams holds dependencies for NewSession.
type SessionParams struct {
	fx.In
	Config     *config.Config
	Resolver   *device.Resolver
	Source     *capture.Source
	Sender     *sender.Sender
	Metrics    *observe.Metrics
	Logger     *zap.Logger
	Shutdowner fx.Shutdowner
}

// Session connects a capture stream to the network sender through an
// unbounded queue.
type Session struct {
	cfg        *config.Config
	resolver   *device.Resolver
	source     *capture.Source
	sender     *sender.Sender
	metrics    *observe.Metrics
	logger     *zap.Logger
	shutdowner fx.Shutdowner

	mu     sync.Mutex
	run    *run
	closed bool
	err    error
}

// run is the state of one started session.
type run struct {
	handle *capture.Handle
	queue  *util.Queue[audio.SampleBuffer]
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewSession creates a new Session instance.
func NewSession(p SessionParams) *Session {
	return &Session{
		cfg:        p.Config,
		resolver:   p.Resolver,
		source:     p.Source,
		sender:     p.Sender,
		metrics:    p.Metrics,
		logger:     p.Logger.Named("pipeline"),
		shutdowner: p.Shutdowner,
	}
}

// Start resolves the input device, starts capture and launches the sender.
// Device and capture failures are returned; failures of the running sender
// are logged and request application shutdown with exit code 1.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil || s.closed {
		return ErrAlreadyStarted
	}

	dev, err := s.resolver.Resolve(s.cfg.Audio.Device)
	if err != nil {
		return err
	}
	s.logger.Info("Using input device",
		zap.String("device", dev.Name),
		zap.Float64("default_sample_rate", dev.DefaultSampleRate),
		zap.Int("max_input_channels", dev.MaxInputChannels),
	)

	queue := util.NewQueue[audio.SampleBuffer]()
	params := capture.ParamsFromFormat(s.cfg.Audio.Format())

	handle, err := s.source.Start(dev, params, func(buf audio.SampleBuffer) {
		// Runs on the audio thread.
		bg := context.Background()
		s.metrics.RecordCaptured(bg)
		if queue.Push(buf) != nil {
			s.metrics.RecordDropped(bg)
		}
	})
	if err != nil {
		return err
	}
	s.logger.Info("Capture started",
		zap.Int("sample_rate", params.SampleRate),
		zap.Int("channels", params.Channels),
		zap.Int("buffer_size", params.BufferSize),
		zap.Int("frame_bytes", s.cfg.Audio.Format().FrameBytes()),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		handle: handle,
		queue:  queue,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.run = r

	go s.serve(runCtx, r)
	return nil
}

func (s *Session) serve(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	watchdog := util.NewWatchdog(s.cfg.Pipeline.StallTimeout, func() {
		s.logger.Warn("No frame sent within stall timeout",
			zap.Duration("stall_timeout", s.cfg.Pipeline.StallTimeout),
			zap.Int("queue_depth", r.queue.Len()),
		)
	})
	defer watchdog.Stop()

	src := &queueSource{queue: r.queue, metrics: s.metrics, watchdog: watchdog}
	netCfg := s.cfg.Network

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.sender.Run(gctx, netCfg.Protocol, netCfg.Server, src)
	})
	g.Go(func() error {
		s.reportCaptureErrors(gctx, r.handle.Errors())
		return nil
	})

	err := g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	r.err = err
	s.logger.Error("Audio streaming failed",
		zap.String("protocol", string(netCfg.Protocol)),
		zap.String("server", netCfg.Server),
		zap.Error(err),
	)
	if relErr := r.handle.Release(); relErr != nil {
		s.logger.Warn("Failed to release capture stream", zap.Error(relErr))
	}
	r.queue.Close()

	if shutErr := s.shutdowner.Shutdown(fx.ExitCode(1)); shutErr != nil {
		s.logger.Error("Failed to request shutdown", zap.Error(shutErr))
	}
}

func (s *Session) reportCaptureErrors(ctx context.Context, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			kind := "stream"
			var streamErr *capture.StreamError
			if errors.As(err, &streamErr) {
				kind = streamErr.Kind
			}
			s.metrics.RecordCaptureError(ctx, kind)
			s.logger.Warn("Capture stream error", zap.String("kind", kind), zap.Error(err))
		}
	}
}

// Stop releases the capture stream and lets the sender drain queued frames.
// If ctx ends first the sender is cancelled.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	r := s.run
	s.run = nil
	s.closed = true
	s.mu.Unlock()

	if r == nil {
		return nil
	}

	var relErr error
	if err := r.handle.Release(); err != nil {
		relErr = fmt.Errorf("release capture: %w", err)
	}
	r.queue.Close()

	select {
	case <-r.done:
	case <-ctx.Done():
		s.logger.Warn("Stop deadline reached, dropping queued frames",
			zap.Int("pending", r.queue.Len()),
		)
		r.cancel()
		<-r.done
	}

	stats := s.sender.Stats()
	s.logger.Info("Session stopped",
		zap.Uint64("packets", stats.Packets),
		zap.Uint64("bytes", stats.Bytes),
		zap.Uint64("send_errors", stats.Errors),
	)
	s.mu.Lock()
	s.err = r.err
	s.mu.Unlock()
	return relErr
}

// Err returns the fatal error that ended the sender, once Stop has returned.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// queueSource adapts the sample queue to sender.FrameSource, encoding each
// buffer as it is taken.
type queueSource struct {
	queue    *util.Queue[audio.SampleBuffer]
	metrics  *observe.Metrics
	watchdog *util.Watchdog
}

func (q *queueSource) Next(ctx context.Context) (audio.EncodedFrame, error) {
	buf, err := q.queue.Pop(ctx)
	if err != nil {
		return nil, err
	}
	q.metrics.RecordDequeued(ctx)
	q.watchdog.Reset()
	return audio.EncodeFrame(buf), nil
}
