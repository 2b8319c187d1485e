package app

import (
	"time"

	"github.com/jasonsandlin/xbox-live-api-go/config"
	"github.com/jasonsandlin/xbox-live-api-go/http"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
	"github.com/jasonsandlin/xbox-live-api-go/observability"
	"github.com/jasonsandlin/xbox-live-api-go/throttle"
)

// Options contains optional dependencies for creating an App instance.
// Zero values select the production defaults.
type Options struct {
	ConfigLoader    func() (*config.Config, error)
	Logger          logger.Logger
	Doer            http.Doer
	Registry        *throttle.Registry
	ProviderFactory func(*config.Config, logger.Logger) (observability.Provider, error)
	ShutdownTimeout time.Duration
}

func (o *Options) configLoader() func() (*config.Config, error) {
	if o == nil || o.ConfigLoader == nil {
		return config.Load
	}
	return o.ConfigLoader
}

func (o *Options) providerFactory() func(*config.Config, logger.Logger) (observability.Provider, error) {
	if o == nil || o.ProviderFactory == nil {
		return observability.NewProvider
	}
	return o.ProviderFactory
}

func (o *Options) shutdownTimeout() time.Duration {
	if o == nil || o.ShutdownTimeout <= 0 {
		return observability.DefaultShutdownTimeout
	}
	return o.ShutdownTimeout
}
