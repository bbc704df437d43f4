package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-audio-sender/internal/config"
)

// Module provides metrics and the optional /metrics endpoint.
var Module = fx.Module("observe",
	fx.Provide(
		prometheus.NewRegistry,
		NewMeterProviderLifecycle,
		NewMetrics,
	),
	fx.Invoke(RegisterServer),
)

// NewMeterProviderLifecycle provides a Prometheus backed meter provider that
// is flushed and closed when the application stops.
func NewMeterProviderLifecycle(lc fx.Lifecycle, reg *prometheus.Registry) (metric.MeterProvider, error) {
	mp, err := NewMeterProvider(reg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}

// RegisterServer serves /metrics when metrics.listen_addr is set.
func RegisterServer(lc fx.Lifecycle, cfg *config.Config, reg *prometheus.Registry, logger *zap.Logger) {
	if cfg.Metrics.ListenAddr == "" {
		return
	}
	srv := NewServer(cfg.Metrics.ListenAddr, reg, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}
