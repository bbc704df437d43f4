// Package observe provides the OpenTelemetry metrics recorded by the audio
// pipeline and the Prometheus endpoint that exposes them.
//
// Tests should build [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/Raikerian/go-audio-sender"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Capture ---

	// CaptureBuffers counts buffers delivered by the capture callback.
	CaptureBuffers metric.Int64Counter

	// CaptureErrors counts asynchronous stream errors. Use with attribute:
	//   attribute.String("kind", ...)
	CaptureErrors metric.Int64Counter

	// CaptureDropped counts buffers that arrived after the queue was closed.
	CaptureDropped metric.Int64Counter

	// --- Sender ---

	// FramesSent counts frames fully handed to the transport. Use with attribute:
	//   attribute.String("protocol", ...)
	FramesSent metric.Int64Counter

	// BytesSent counts payload bytes handed to the transport.
	BytesSent metric.Int64Counter

	// SendErrors counts failed writes. Use with attributes:
	//   attribute.String("protocol", ...), attribute.Bool("fatal", ...)
	SendErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks buffers waiting between capture and sender.
	QueueDepth metric.Int64UpDownCounter
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CaptureBuffers, err = m.Int64Counter("audiosender.capture.buffers",
		metric.WithDescription("Buffers delivered by the capture callback."),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("audiosender.capture.errors",
		metric.WithDescription("Asynchronous capture stream errors by kind."),
	); err != nil {
		return nil, err
	}
	if met.CaptureDropped, err = m.Int64Counter("audiosender.capture.dropped",
		metric.WithDescription("Captured buffers rejected because the queue was closed."),
	); err != nil {
		return nil, err
	}
	if met.FramesSent, err = m.Int64Counter("audiosender.frames.sent",
		metric.WithDescription("Frames written to the network by protocol."),
	); err != nil {
		return nil, err
	}
	if met.BytesSent, err = m.Int64Counter("audiosender.bytes.sent",
		metric.WithDescription("Payload bytes written to the network by protocol."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.SendErrors, err = m.Int64Counter("audiosender.send.errors",
		metric.WithDescription("Failed network writes by protocol and fatality."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("audiosender.queue.depth",
		metric.WithDescription("Buffers waiting between capture and sender."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Nop returns metrics that record nothing.
func Nop() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The noop provider never fails.
		panic(err)
	}
	return m
}

// RecordCaptured records one captured buffer entering the queue. Call it
// before the push so the consumer never sees a negative depth.
func (m *Metrics) RecordCaptured(ctx context.Context) {
	m.CaptureBuffers.Add(ctx, 1)
	m.QueueDepth.Add(ctx, 1)
}

// RecordDequeued records one buffer leaving the queue.
func (m *Metrics) RecordDequeued(ctx context.Context) {
	m.QueueDepth.Add(ctx, -1)
}

// RecordDropped reverses the queue depth of a RecordCaptured whose buffer
// could not be queued.
func (m *Metrics) RecordDropped(ctx context.Context) {
	m.QueueDepth.Add(ctx, -1)
	m.CaptureDropped.Add(ctx, 1)
}

// RecordCaptureError records an asynchronous stream error.
func (m *Metrics) RecordCaptureError(ctx context.Context, kind string) {
	m.CaptureErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSent records one frame of n bytes written over protocol.
func (m *Metrics) RecordSent(ctx context.Context, protocol string, n int) {
	attrs := metric.WithAttributes(attribute.String("protocol", protocol))
	m.FramesSent.Add(ctx, 1, attrs)
	m.BytesSent.Add(ctx, int64(n), attrs)
}

// RecordSendError records a failed write.
func (m *Metrics) RecordSendError(ctx context.Context, protocol string, fatal bool) {
	m.SendErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("protocol", protocol),
		attribute.Bool("fatal", fatal),
	))
}
