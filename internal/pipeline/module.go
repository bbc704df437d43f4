package pipeline

import (
	"go.uber.org/fx"
)

// Module provides the streaming session.
var Module = fx.Module("pipeline",
	fx.Provide(NewSession),
)
