package sender

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-audio-sender/internal/config"
	"github.com/Raikerian/go-audio-sender/internal/observe"
)

// Module provides the network sender.
var Module = fx.Module("sender",
	fx.Provide(NewFromConfig),
)

// NewFromConfig builds a Sender from the application configuration.
func NewFromConfig(logger *zap.Logger, metrics *observe.Metrics, cfg *config.Config) *Sender {
	return New(logger.Named("sender"), metrics, cfg.Network)
}
