package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config represents the overall configuration of a service call client.
// It includes sections for application identity, logging, the call engine
// and telemetry. The embedded koanf.Koanf instance allows flexible access to
// additional custom keys not explicitly defined in the struct.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	HTTP          HTTPConfig          `koanf:"http" json:"http" yaml:"http" mapstructure:"http"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" mapstructure:"env" validate:"oneof=development staging production"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// HTTPConfig holds the settings consumed by the call engine.
type HTTPConfig struct {
	// TimeoutWindow is the total wall-clock budget of one logical call,
	// retries included. Default: 20s.
	TimeoutWindow time.Duration `koanf:"timeoutwindow" json:"timeoutwindow" yaml:"timeoutwindow" mapstructure:"timeoutwindow" validate:"gt=0"`

	// RetryDelayBase is raised to the attempt number to get the backoff bounds.
	// Default: 2s. Values below 1s would shrink the delay as attempts grow.
	RetryDelayBase time.Duration `koanf:"retrydelaybase" json:"retrydelaybase" yaml:"retrydelaybase" mapstructure:"retrydelaybase" validate:"gte=1s"`

	// AttemptTimeout bounds a single round trip on the transport. Default: 30s.
	AttemptTimeout time.Duration `koanf:"attempttimeout" json:"attempttimeout" yaml:"attempttimeout" mapstructure:"attempttimeout" validate:"gt=0"`

	// DisableThrottleAsserts stops a terminal 429 in a development sandbox from
	// being reported as ErrorTypeThrottledDevSandbox.
	DisableThrottleAsserts bool `koanf:"disablethrottleasserts" json:"disablethrottleasserts" yaml:"disablethrottleasserts" mapstructure:"disablethrottleasserts"`

	Sandbox          string `koanf:"sandbox" json:"sandbox" yaml:"sandbox" mapstructure:"sandbox" validate:"required"`
	Locale           string `koanf:"locale" json:"locale" yaml:"locale" mapstructure:"locale" validate:"required,locale"`
	AuthHeaderFormat string `koanf:"authheaderformat" json:"authheaderformat" yaml:"authheaderformat" mapstructure:"authheaderformat" validate:"oneof=xbl3 bare"`

	// Pacing maps an API name to a client-side token bucket. APIs without an
	// entry are not paced.
	Pacing map[string]PacingConfig `koanf:"pacing" json:"pacing" yaml:"pacing" mapstructure:"pacing" validate:"dive"`
}

// PacingConfig holds a token bucket for one API.
type PacingConfig struct {
	Rate  float64 `koanf:"rate" json:"rate" yaml:"rate" mapstructure:"rate" validate:"gt=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=1"`
}

// ObservabilityConfig holds OpenTelemetry exporter settings.
type ObservabilityConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Endpoint is an OTLP collector address or "stdout".
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Protocol selects OTLP transport: "http" or "grpc".
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol" validate:"oneof=http grpc"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`

	// SampleRate is the trace sampling ratio in [0,1].
	SampleRate float64 `koanf:"samplerate" json:"samplerate" yaml:"samplerate" mapstructure:"samplerate" validate:"gte=0,lte=1"`

	// ExportInterval is the metric reader period.
	ExportInterval time.Duration `koanf:"exportinterval" json:"exportinterval" yaml:"exportinterval" mapstructure:"exportinterval" validate:"gt=0"`
}
