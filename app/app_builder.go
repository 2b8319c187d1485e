package app

import (
	"errors"
	"fmt"

	"github.com/jasonsandlin/xbox-live-api-go/config"
	"github.com/jasonsandlin/xbox-live-api-go/http"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
	"github.com/jasonsandlin/xbox-live-api-go/observability"
	"github.com/jasonsandlin/xbox-live-api-go/throttle"
)

// Builder orchestrates the step-by-step construction of an App instance
// using a fluent interface pattern. The first failing step records its error
// and every later step becomes a no-op.
type Builder struct {
	cfg  *config.Config
	opts *Options

	logger   logger.Logger
	provider observability.Provider
	registry *throttle.Registry
	executor *http.Executor

	err error
}

// NewAppBuilder creates a new app builder instance.
func NewAppBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the configuration and options for the app.
func (b *Builder) WithConfig(cfg *config.Config, opts *Options) *Builder {
	if b.err != nil {
		return b
	}
	if cfg == nil {
		b.err = errors.New("configuration is required")
		return b
	}

	b.cfg = cfg
	b.opts = opts
	return b
}

// CreateLogger creates and configures the application logger.
func (b *Builder) CreateLogger() *Builder {
	if b.err != nil {
		return b
	}

	if b.cfg == nil {
		b.err = fmt.Errorf("configuration required before creating logger")
		return b
	}

	if b.opts != nil && b.opts.Logger != nil {
		b.logger = b.opts.Logger
	} else {
		b.logger = logger.New(b.cfg.Log.Level, b.cfg.Log.Pretty)
	}
	b.logger.Info().
		Str("app", b.cfg.App.Name).
		Str("env", b.cfg.App.Env).
		Str("version", b.cfg.App.Version).
		Str("sandbox", b.cfg.HTTP.Sandbox).
		Msg("Starting service client")

	return b
}

// CreateObservability initializes the trace and meter providers.
func (b *Builder) CreateObservability() *Builder {
	if b.err != nil {
		return b
	}

	if b.logger == nil {
		b.err = fmt.Errorf("logger required before creating observability")
		return b
	}

	provider, err := b.opts.providerFactory()(b.cfg, b.logger)
	if err != nil {
		b.err = fmt.Errorf("failed to initialize observability: %w", err)
		return b
	}
	b.provider = provider
	return b
}

// CreateExecutor builds the call executor and its shared throttle registry.
func (b *Builder) CreateExecutor() *Builder {
	if b.err != nil {
		return b
	}

	if b.provider == nil {
		b.err = fmt.Errorf("observability required before creating executor")
		return b
	}

	b.registry = throttle.NewRegistry()
	if b.opts != nil && b.opts.Registry != nil {
		b.registry = b.opts.Registry
	}

	eb := http.NewBuilder(b.logger).
		WithConfig(b.cfg.HTTP).
		WithVersion(b.cfg.App.Version).
		WithRegistry(b.registry).
		WithTelemetry(b.provider.MeterProvider(), b.provider.TracerProvider())
	if b.opts != nil && b.opts.Doer != nil {
		eb = eb.WithDoer(b.opts.Doer)
	}
	b.executor = eb.Build()

	b.logger.Debug().
		Dur("timeout_window", b.cfg.HTTP.TimeoutWindow).
		Dur("retry_delay_base", b.cfg.HTTP.RetryDelayBase).
		Int("paced_apis", len(b.cfg.HTTP.Pacing)).
		Msg("Call executor created")
	return b
}

// Build returns the assembled App or the first error encountered. A
// provider created before a later step failed is shut down.
func (b *Builder) Build() (*App, error) {
	if b.err != nil {
		if b.provider != nil {
			_ = observability.Shutdown(b.provider, b.opts.shutdownTimeout())
		}
		return nil, b.err
	}
	if b.executor == nil {
		return nil, fmt.Errorf("executor required before building app")
	}

	return &App{
		cfg:             b.cfg,
		logger:          b.logger,
		provider:        b.provider,
		registry:        b.registry,
		executor:        b.executor,
		shutdownTimeout: b.opts.shutdownTimeout(),
	}, nil
}
