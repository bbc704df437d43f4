// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-audio-sender/internal/pipeline"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	return &Application{
		app: fx.New(options...),
	}
}

// Err returns any error encountered while building the dependency graph.
func (a *Application) Err() error {
	return a.app.Err()
}

// Start starts the streaming session and every supporting component.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Wait returns a channel that receives the signal that should end the run:
// an OS signal or a shutdown requested by the session.
func (a *Application) Wait() <-chan fx.ShutdownSignal {
	return a.app.Wait()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// StopTimeout is the budget for Stop, including draining queued frames.
func (a *Application) StopTimeout() time.Duration {
	return a.app.StopTimeout()
}

// registerLifecycleHooks sets up the application lifecycle hooks.
func registerLifecycleHooks(lc fx.Lifecycle, s *pipeline.Session, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting application: starting audio session")

			if err := s.Start(ctx); err != nil {
				logger.Error("Failed to start audio session", zap.Error(err))

				return err
			}

			logger.Info("Application started successfully")

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping application: draining audio session")

			if err := s.Stop(ctx); err != nil {
				logger.Error("Failed to stop audio session", zap.Error(err))

				return err
			}

			logger.Info("Application stopped successfully")

			return nil
		},
	})
}
