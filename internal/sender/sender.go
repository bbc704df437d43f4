// Package sender streams encoded audio frames to a remote server over TCP or
// UDP.
package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-audio-sender/internal/config"
	"github.com/Raikerian/go-audio-sender/internal/observe"
	"github.com/Raikerian/go-audio-sender/pkg/audio"
	"github.com/Raikerian/go-audio-sender/pkg/util"
)

// FrameSource yields frames in capture order. Next blocks until a frame is
// ready and returns util.ErrClosed once no more frames will come.
type FrameSource interface {
	Next(ctx context.Context) (audio.EncodedFrame, error)
}

// Dialer establishes network connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Stats are running totals across all runs of a Sender.
type Stats struct {
	Packets uint64
	Bytes   uint64
	Errors  uint64
}

// Sender writes frames to one connection per run.
type Sender struct {
	logger      *zap.Logger
	metrics     *observe.Metrics
	dialer      Dialer
	dialTimeout time.Duration
	logEvery    int
	errLog      *errorLog

	packets atomic.Uint64
	bytes   atomic.Uint64
	failed  atomic.Uint64
}

// Option customizes a Sender.
type Option func(*Sender)

// WithDialer replaces the default net.Dialer.
func WithDialer(d Dialer) Option {
	return func(s *Sender) { s.dialer = d }
}

// New creates a Sender configured from the network section.
func New(logger *zap.Logger, metrics *observe.Metrics, cfg config.NetworkConfig, opts ...Option) *Sender {
	s := &Sender{
		logger:      logger,
		metrics:     metrics,
		dialer:      &net.Dialer{},
		dialTimeout: cfg.DialTimeout,
		logEvery:    cfg.LogEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	// One cache per Sender: the expirable LRU runs a cleanup goroutine that
	// lives as long as the cache.
	s.errLog = newErrorLog(logger, cfg.ErrorLogWindow)
	return s
}

// Stats returns a snapshot of the running totals.
func (s *Sender) Stats() Stats {
	return Stats{
		Packets: s.packets.Load(),
		Bytes:   s.bytes.Load(),
		Errors:  s.failed.Load(),
	}
}

// Run streams frames from src to addr over proto until src is exhausted, ctx
// is cancelled or a fatal error occurs. Exhausting src is a clean exit.
func (s *Sender) Run(ctx context.Context, proto config.Protocol, addr string, src FrameSource) error {
	switch proto {
	case config.TCP:
		return s.RunTCP(ctx, addr, src)
	case config.UDP:
		return s.RunUDP(ctx, addr, src)
	default:
		return fmt.Errorf("unsupported protocol %q", proto)
	}
}

// RunTCP writes every frame in full on one stream connection, with no
// delimiter between frames. Any write failure ends the run with a fatal
// *SendError.
func (s *Sender) RunTCP(ctx context.Context, addr string, src FrameSource) error {
	conn, err := s.connect(ctx, config.TCP, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	return s.stream(ctx, config.TCP, addr, conn, src, func(packet uint64, _ int, err error) error {
		s.metrics.RecordSendError(ctx, string(config.TCP), true)
		return &SendError{Protocol: config.TCP, Addr: addr, Packet: packet, Fatal: true, Err: err}
	})
}

// RunUDP sends every frame as one datagram from an ephemeral local socket
// associated with addr. Send failures are logged and the next frame is tried.
func (s *Sender) RunUDP(ctx context.Context, addr string, src FrameSource) error {
	conn, err := s.connect(ctx, config.UDP, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	defer s.errLog.Flush()

	return s.stream(ctx, config.UDP, addr, conn, src, func(packet uint64, size int, err error) error {
		s.metrics.RecordSendError(ctx, string(config.UDP), false)
		s.errLog.Log(err,
			zap.Uint64("packet", packet),
			zap.Int("bytes", size),
			zap.String("addr", addr),
		)
		return nil
	})
}

func (s *Sender) connect(ctx context.Context, proto config.Protocol, addr string) (net.Conn, error) {
	dialCtx := ctx
	if s.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.dialTimeout)
		defer cancel()
	}

	conn, err := s.dialer.DialContext(dialCtx, string(proto), addr)
	if err != nil {
		return nil, &ConnectionError{Protocol: proto, Addr: addr, Err: err}
	}

	s.logger.Info("Connected to server",
		zap.String("protocol", string(proto)),
		zap.String("local", conn.LocalAddr().String()),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	return conn, nil
}

// stream is the send loop shared by both transports. onError decides whether
// a failed write ends the run.
func (s *Sender) stream(
	ctx context.Context,
	proto config.Protocol,
	addr string,
	conn io.WriteCloser,
	src FrameSource,
	onError func(packet uint64, size int, err error) error,
) error {
	// Unblocks a pending write when the run is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var packet, sent uint64
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, util.ErrClosed) {
			s.logger.Info("Frame source closed, stopping sender",
				zap.String("protocol", string(proto)),
				zap.Uint64("packets", packet),
				zap.Uint64("sent", sent),
			)
			return nil
		}
		if err != nil {
			return err
		}

		packet++
		n, err := conn.Write(frame)
		if err == nil && n < len(frame) {
			err = io.ErrShortWrite
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.failed.Add(1)
			if err := onError(packet, len(frame), err); err != nil {
				return err
			}
			continue
		}

		s.packets.Add(1)
		s.bytes.Add(uint64(n))
		s.metrics.RecordSent(ctx, string(proto), n)
		sent++
		s.logProgress(proto, addr, sent, n)
	}
}

func (s *Sender) logProgress(proto config.Protocol, addr string, sent uint64, size int) {
	if sent == 1 {
		s.logger.Info("Sent first frame",
			zap.String("protocol", string(proto)),
			zap.String("addr", addr),
			zap.Int("bytes", size),
		)
		return
	}
	if s.logEvery > 0 && sent%uint64(s.logEvery) == 0 {
		s.logger.Info("Sent frames",
			zap.String("protocol", string(proto)),
			zap.Uint64("sent", sent),
		)
	}
}
