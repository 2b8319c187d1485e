package http

import (
	nethttp "net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/jasonsandlin/xbox-live-api-go/auth"
	"github.com/jasonsandlin/xbox-live-api-go/config"
	"github.com/jasonsandlin/xbox-live-api-go/http/internal/tracking"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
	"github.com/jasonsandlin/xbox-live-api-go/retry"
	"github.com/jasonsandlin/xbox-live-api-go/throttle"
	"github.com/jasonsandlin/xbox-live-api-go/validation"
)

const (
	// DefaultTimeoutWindow bounds a logical call including all retries.
	DefaultTimeoutWindow = 20 * time.Second

	// DefaultRetryDelayBase is the exponent base of the backoff, in seconds.
	DefaultRetryDelayBase = 2 * time.Second

	// DefaultAttemptTimeout bounds a single round trip.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultVersion is reported in the User-Agent when none is configured.
	DefaultVersion = "1.0.0"
)

// Settings are the per-title values that shape headers and throttle handling.
type Settings struct {
	Sandbox string
	Locale  string
	Version string
	// DisableThrottleAsserts suppresses the dev sandbox 429 error.
	DisableThrottleAsserts bool
}

// DevSandbox reports whether calls target a development sandbox.
func (s Settings) DevSandbox() bool {
	return s.Sandbox != "" && !strings.EqualFold(s.Sandbox, config.SandboxRetail)
}

// Builder provides a fluent interface for configuring the executor
type Builder struct {
	log            logger.Logger
	doer           Doer
	attemptTimeout time.Duration
	registry       *throttle.Registry
	pacer          *throttle.Pacer
	policy         retry.Policy
	attacher       *auth.Attacher
	format         auth.Format
	settings       Settings
	sleep          retry.SleepFunc
	now            func() time.Time
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
}

// NewBuilder creates a builder with the default policy and settings.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		log:            log,
		attemptTimeout: DefaultAttemptTimeout,
		policy:         retry.NewPolicy(DefaultTimeoutWindow, DefaultRetryDelayBase),
		settings: Settings{
			Sandbox: config.SandboxRetail,
			Locale:  "en-US",
			Version: DefaultVersion,
		},
	}
}

// WithConfig applies the http configuration section.
func (b *Builder) WithConfig(cfg config.HTTPConfig) *Builder {
	jitter := b.policy.Jitter
	b.policy = retry.NewPolicy(cfg.TimeoutWindow, cfg.RetryDelayBase)
	if jitter != nil {
		b.policy.Jitter = jitter
	}
	if cfg.AttemptTimeout > 0 {
		b.attemptTimeout = cfg.AttemptTimeout
	}
	b.settings.Sandbox = cfg.Sandbox
	b.settings.Locale = cfg.Locale
	b.settings.DisableThrottleAsserts = cfg.DisableThrottleAsserts
	f, err := auth.ParseFormat(cfg.AuthHeaderFormat)
	if err != nil && b.log != nil {
		b.log.Warn().Err(err).Str("fallback", "xbl3").Msg("Ignoring authorization header format")
	}
	b.format = f
	if len(cfg.Pacing) > 0 {
		limits := make(map[string]throttle.Limit, len(cfg.Pacing))
		for api, p := range cfg.Pacing {
			limits[api] = throttle.Limit{Rate: p.Rate, Burst: p.Burst}
		}
		b.pacer = throttle.NewPacer(limits)
	}
	return b
}

// WithDoer sets the transport. The default is a *net/http.Client with the
// attempt timeout.
func (b *Builder) WithDoer(d Doer) *Builder {
	b.doer = d
	return b
}

// WithRegistry shares throttle state with other executors.
func (b *Builder) WithRegistry(r *throttle.Registry) *Builder {
	b.registry = r
	return b
}

// WithPacer sets client-side pacing.
func (b *Builder) WithPacer(p *throttle.Pacer) *Builder {
	b.pacer = p
	return b
}

// WithPolicy replaces the retry policy
func (b *Builder) WithPolicy(p retry.Policy) *Builder {
	b.policy = p
	return b
}

// WithJitter sets the jitter source of the policy
func (b *Builder) WithJitter(j retry.JitterFunc) *Builder {
	b.policy.Jitter = j
	return b
}

// WithAttacher sets the credential attacher
func (b *Builder) WithAttacher(a *auth.Attacher) *Builder {
	b.attacher = a
	return b
}

// WithSettings replaces the sandbox, locale and version settings
func (b *Builder) WithSettings(s Settings) *Builder {
	b.settings = s
	return b
}

// WithVersion sets the version reported in the User-Agent
func (b *Builder) WithVersion(v string) *Builder {
	b.settings.Version = v
	return b
}

// WithSleep replaces the retry sleep
func (b *Builder) WithSleep(fn retry.SleepFunc) *Builder {
	b.sleep = fn
	return b
}

// WithClock replaces the time source
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithTelemetry sets the providers used for call metrics and spans.
// Nil providers fall back to the OpenTelemetry globals.
func (b *Builder) WithTelemetry(mp metric.MeterProvider, tp oteltrace.TracerProvider) *Builder {
	b.meterProvider = mp
	b.tracerProvider = tp
	return b
}

// Build creates the executor with the configured options
func (b *Builder) Build() *Executor {
	log := b.log
	if log == nil {
		log = logger.Nop()
	}

	e := &Executor{
		doer:      b.doer,
		registry:  b.registry,
		pacer:     b.pacer,
		policy:    b.policy,
		attacher:  b.attacher,
		settings:  b.settings,
		sleep:     b.sleep,
		now:       b.now,
		log:       log,
		tracker:   tracking.New(b.meterProvider, b.tracerProvider),
		validator: validation.New(),
	}
	if e.doer == nil {
		e.doer = &nethttp.Client{Timeout: b.attemptTimeout}
	}
	if e.registry == nil {
		e.registry = throttle.NewRegistry()
	}
	if e.attacher == nil {
		e.attacher = auth.NewAttacher(b.format, log)
	}
	if e.settings.Version == "" {
		e.settings.Version = DefaultVersion
	}
	if e.sleep == nil {
		e.sleep = retry.Sleep
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.defaults = defaultHeaders(e.settings.Locale)
	return e
}
