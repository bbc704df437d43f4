package device

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the PortAudio host and the device resolver.
var Module = fx.Module("device",
	fx.Provide(
		NewPortAudioLifecycle,
		func(h *PortAudioHost) Host { return h },
		NewResolver,
	),
)

// NewPortAudioLifecycle binds PortAudio initialization to the application lifecycle.
func NewPortAudioLifecycle(lc fx.Lifecycle, logger *zap.Logger) *PortAudioHost {
	host := NewPortAudioHost()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := host.Open(); err != nil {
				return err
			}
			logger.Debug("PortAudio initialized")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return host.Close()
		},
	})
	return host
}
