package infrastructure_test

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-audio-sender/pkg/infrastructure"
)

func TestNewFxLoggerAdapter(t *testing.T) {
	adapter := infrastructure.NewFxLoggerAdapter(zaptest.NewLogger(t))

	var _ fxevent.Logger = adapter
	require.NotNil(t, adapter)
}

func TestNewFxPrinter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	printer := infrastructure.NewFxPrinter(zap.New(core))

	var _ fx.Printer = printer
	printer.Printf("Test message: %s", "hello")
	printer.Printf("Test message without args")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Test message: hello", entries[0].Message)
	assert.Equal(t, "fx", entries[0].LoggerName)
}

func TestFxLoggerAdapter_LogEvent(t *testing.T) {
	testErr := errors.New("test error")

	tests := map[string]struct {
		event     fxevent.Event
		wantLevel zapcore.Level
		wantMsg   string
	}{
		"hook executing": {
			event:     &fxevent.OnStartExecuting{FunctionName: "f", CallerName: "c"},
			wantLevel: zap.DebugLevel,
			wantMsg:   "OnStart hook executing",
		},
		"hook executed": {
			event:     &fxevent.OnStopExecuted{FunctionName: "f", CallerName: "c", Runtime: time.Millisecond},
			wantLevel: zap.DebugLevel,
			wantMsg:   "OnStop hook executed",
		},
		"hook failed": {
			event:     &fxevent.OnStartExecuted{FunctionName: "f", CallerName: "c", Err: testErr},
			wantLevel: zap.ErrorLevel,
			wantMsg:   "OnStart hook failed",
		},
		"provided": {
			event:     &fxevent.Provided{OutputTypeNames: []string{"*zap.Logger"}},
			wantLevel: zap.DebugLevel,
			wantMsg:   "Provided",
		},
		"invoke failed": {
			event:     &fxevent.Invoked{FunctionName: "f", Err: testErr},
			wantLevel: zap.ErrorLevel,
			wantMsg:   "Invoked failed",
		},
		"supplied": {
			event:     &fxevent.Supplied{TypeName: "*config.Config"},
			wantLevel: zap.DebugLevel,
			wantMsg:   "Supplied",
		},
		"stopping": {
			event:     &fxevent.Stopping{Signal: syscall.SIGTERM},
			wantLevel: zap.InfoLevel,
			wantMsg:   "Received signal",
		},
		"started": {
			event:     &fxevent.Started{},
			wantLevel: zap.InfoLevel,
			wantMsg:   "Started",
		},
		"started with error": {
			event:     &fxevent.Started{Err: testErr},
			wantLevel: zap.ErrorLevel,
			wantMsg:   "Started with error",
		},
		"rolling back": {
			event:     &fxevent.RollingBack{StartErr: testErr},
			wantLevel: zap.ErrorLevel,
			wantMsg:   "Start failed, rolling back",
		},
		"logger initialized with error": {
			event:     &fxevent.LoggerInitialized{ConstructorName: "ctor", Err: testErr},
			wantLevel: zap.ErrorLevel,
			wantMsg:   "Logger initialized failed",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			adapter := infrastructure.NewFxLoggerAdapter(zap.New(core))

			adapter.LogEvent(tt.event)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
			assert.Equal(t, tt.wantMsg, entries[0].Message)
		})
	}
}

func TestFxIntegration(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	app := fxtest.New(t,
		fx.WithLogger(infrastructure.NewFxLoggerAdapter),
		fx.Supply(logger),
		fx.Invoke(func(*zap.Logger) {}),
	)
	app.RequireStart()
	app.RequireStop()

	assert.NotZero(t, logs.FilterMessage("Started").Len())
	assert.NotZero(t, logs.FilterMessage("Stopped").Len())
}
