package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the int64 sum data point matching attrs, or fails.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q: expected Sum[int64], got %T", name, m.Data)
	}
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	t.Fatalf("metric %q: no data point with attributes %v", name, attrs)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestQueueDepthTracksCaptureAndDequeue(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	for range 6 {
		m.RecordCaptured(ctx)
	}
	m.RecordDequeued(ctx)
	m.RecordDequeued(ctx)
	m.RecordDropped(ctx)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "audiosender.queue.depth"); got != 3 {
		t.Errorf("queue depth = %d, want 3", got)
	}
	if got := sumFor(t, rm, "audiosender.capture.buffers"); got != 6 {
		t.Errorf("capture buffers = %d, want 6", got)
	}
	if got := sumFor(t, rm, "audiosender.capture.dropped"); got != 1 {
		t.Errorf("capture dropped = %d, want 1", got)
	}
}

func TestRecordSent(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSent(ctx, "tcp", 4096)
	m.RecordSent(ctx, "tcp", 4096)
	m.RecordSent(ctx, "udp", 16)

	rm := collect(t, reader)
	tcp := attribute.String("protocol", "tcp")
	udp := attribute.String("protocol", "udp")

	if got := sumFor(t, rm, "audiosender.frames.sent", tcp); got != 2 {
		t.Errorf("tcp frames = %d, want 2", got)
	}
	if got := sumFor(t, rm, "audiosender.bytes.sent", tcp); got != 8192 {
		t.Errorf("tcp bytes = %d, want 8192", got)
	}
	if got := sumFor(t, rm, "audiosender.frames.sent", udp); got != 1 {
		t.Errorf("udp frames = %d, want 1", got)
	}
}

func TestRecordErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSendError(ctx, "udp", false)
	m.RecordSendError(ctx, "udp", false)
	m.RecordSendError(ctx, "tcp", true)
	m.RecordCaptureError(ctx, "input_overflow")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "audiosender.send.errors",
		attribute.String("protocol", "udp"), attribute.Bool("fatal", false)); got != 2 {
		t.Errorf("udp transient errors = %d, want 2", got)
	}
	if got := sumFor(t, rm, "audiosender.send.errors",
		attribute.String("protocol", "tcp"), attribute.Bool("fatal", true)); got != 1 {
		t.Errorf("tcp fatal errors = %d, want 1", got)
	}
	if got := sumFor(t, rm, "audiosender.capture.errors",
		attribute.String("kind", "input_overflow")); got != 1 {
		t.Errorf("capture errors = %d, want 1", got)
	}
}

func TestNop(t *testing.T) {
	m := Nop()
	ctx := context.Background()

	// Should not panic
	m.RecordCaptured(ctx)
	m.RecordSent(ctx, "tcp", 1)
	m.RecordSendError(ctx, "udp", false)
}
