package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jasonsandlin/xbox-live-api-go/config"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
)

func testConfig(endpoint, protocol string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "xbl-client", Version: "1.0.0", Env: "development"},
		Observability: config.ObservabilityConfig{
			Enabled:        true,
			Endpoint:       endpoint,
			Protocol:       protocol,
			Insecure:       true,
			SampleRate:     1,
			ExportInterval: time.Minute,
		},
	}
}

// restoreGlobals undoes the global providers NewProvider installs.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func shutdownQuietly(p Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestNewProviderDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "nil_config", cfg: nil},
		{name: "disabled", cfg: &config.Config{App: config.AppConfig{Name: "xbl-client"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, nil)
			require.NoError(t, err)

			assert.IsType(t, tracenoop.TracerProvider{}, p.TracerProvider())
			assert.IsType(t, metricnoop.MeterProvider{}, p.MeterProvider())
			assert.NoError(t, p.ForceFlush(context.Background()))
			assert.NoError(t, p.Shutdown(context.Background()))
		})
	}
}

func TestNewProviderStdout(t *testing.T) {
	restoreGlobals(t)

	p, err := NewProvider(testConfig(EndpointStdout, ""), logger.Nop())
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, p.MeterProvider())
	assert.Same(t, p.TracerProvider(), otel.GetTracerProvider())

	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderOTLP(t *testing.T) {
	for _, protocol := range []string{ProtocolHTTP, ProtocolGRPC} {
		t.Run(protocol, func(t *testing.T) {
			restoreGlobals(t)

			cfg := testConfig("localhost:4318", protocol)
			cfg.Observability.Headers = map[string]string{"x-api-key": "test"}

			p, err := NewProvider(cfg, logger.Nop())
			require.NoError(t, err)
			defer shutdownQuietly(p)

			assert.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider())
			assert.IsType(t, &sdkmetric.MeterProvider{}, p.MeterProvider())
		})
	}
}

func TestNewProviderValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:    "missing_service_name",
			mutate:  func(c *config.Config) { c.App.Name = "" },
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "sample_rate_above_one",
			mutate:  func(c *config.Config) { c.Observability.SampleRate = 1.5 },
			wantErr: ErrInvalidSampleRate,
		},
		{
			name:    "negative_sample_rate",
			mutate:  func(c *config.Config) { c.Observability.SampleRate = -0.1 },
			wantErr: ErrInvalidSampleRate,
		},
		{
			name: "unknown_protocol",
			mutate: func(c *config.Config) {
				c.Observability.Endpoint = "localhost:4317"
				c.Observability.Protocol = "udp"
			},
			wantErr: ErrInvalidProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(EndpointStdout, "")
			tt.mutate(cfg)

			p, err := NewProvider(cfg, logger.Nop())
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
