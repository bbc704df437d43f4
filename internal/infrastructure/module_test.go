package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Raikerian/go-audio-sender/internal/config"
)

func TestBuildLogger_Levels(t *testing.T) {
	tests := map[string]struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		"debug":         {level: "debug", enabled: zap.DebugLevel, muted: zapcore.InvalidLevel},
		"info":          {level: "info", enabled: zap.InfoLevel, muted: zap.DebugLevel},
		"warn":          {level: "warn", enabled: zap.WarnLevel, muted: zap.InfoLevel},
		"error":         {level: "error", enabled: zap.ErrorLevel, muted: zap.WarnLevel},
		"upper case":    {level: "WARN", enabled: zap.WarnLevel, muted: zap.InfoLevel},
		"unknown level": {level: "verbose", enabled: zap.InfoLevel, muted: zap.DebugLevel},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			logger, err := BuildLogger(tt.level)
			require.NoError(t, err)

			assert.True(t, logger.Core().Enabled(tt.enabled))
			if tt.muted != zapcore.InvalidLevel {
				assert.False(t, logger.Core().Enabled(tt.muted))
			}
		})
	}
}

func TestLoggerModule(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "warn"

	var logger *zap.Logger
	app := fxtest.New(t,
		config.Module(cfg),
		LoggerModule,
		fx.Populate(&logger),
	)
	app.RequireStart()
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	app.RequireStop()
}
