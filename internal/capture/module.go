package capture

import (
	"go.uber.org/fx"
)

// Module provides the capture source backed by PortAudio.
var Module = fx.Module("capture",
	fx.Provide(
		fx.Annotate(NewPortAudioBackend, fx.As(new(Backend))),
		NewSource,
	),
)
