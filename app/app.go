// Package app assembles a ready-to-use service client from configuration:
// logger, telemetry providers, the shared throttle registry and the call
// executor.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jasonsandlin/xbox-live-api-go/config"
	"github.com/jasonsandlin/xbox-live-api-go/http"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
	"github.com/jasonsandlin/xbox-live-api-go/observability"
	"github.com/jasonsandlin/xbox-live-api-go/throttle"
)

// ErrAlreadyShutdown is returned by Shutdown after the first call.
var ErrAlreadyShutdown = errors.New("app already shut down")

// App owns the long-lived components of a service client.
type App struct {
	cfg             *config.Config
	logger          logger.Logger
	provider        observability.Provider
	registry        *throttle.Registry
	executor        *http.Executor
	shutdownTimeout time.Duration

	shutdownOnce sync.Once
}

// New loads configuration from the working directory and environment and
// creates the application.
func New() (*App, error) {
	return NewWithOptions(nil)
}

// NewWithOptions creates the application, loading configuration with
// opts.ConfigLoader when set.
func NewWithOptions(opts *Options) (*App, error) {
	cfg, err := opts.configLoader()()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig creates the application from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts *Options) (*App, error) {
	return NewAppBuilder().
		WithConfig(cfg, opts).
		CreateLogger().
		CreateObservability().
		CreateExecutor().
		Build()
}

// Executor returns the call executor.
func (a *App) Executor() *http.Executor {
	return a.executor
}

// Registry returns the throttle registry shared by every call of the app.
func (a *App) Registry() *throttle.Registry {
	return a.registry
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Shutdown flushes telemetry and releases exporters. ctx bounds the flush;
// without a deadline the configured shutdown timeout applies.
func (a *App) Shutdown(ctx context.Context) error {
	err := ErrAlreadyShutdown
	a.shutdownOnce.Do(func() {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.shutdownTimeout)
			defer cancel()
		}

		a.logger.Info().Msg("Shutting down service client")
		err = nil
		if flushErr := a.provider.ForceFlush(ctx); flushErr != nil {
			err = fmt.Errorf("failed to flush telemetry: %w", flushErr)
		}
		if shutErr := a.provider.Shutdown(ctx); shutErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to shut down telemetry: %w", shutErr))
		}
		if err != nil {
			a.logger.Error().Err(err).Msg("Shutdown completed with errors")
		}
	})
	return err
}
