package observability

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// createTraceExporter picks the span exporter for the configured endpoint.
// Exporters connect lazily; construction does not reach the collector.
func (p *provider) createTraceExporter() (sdktrace.SpanExporter, error) {
	if p.obs.Endpoint == EndpointStdout {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}

	ctx := context.Background()
	if p.obs.Protocol == ProtocolGRPC {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.obs.Endpoint)}
		if p.obs.Insecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(p.obs.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(p.obs.Headers))
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.obs.Endpoint)}
	if p.obs.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(p.obs.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(p.obs.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// createMetricExporter mirrors createTraceExporter for metrics.
func (p *provider) createMetricExporter() (sdkmetric.Exporter, error) {
	if p.obs.Endpoint == EndpointStdout {
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	}

	ctx := context.Background()
	if p.obs.Protocol == ProtocolGRPC {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.obs.Endpoint)}
		if p.obs.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(p.obs.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(p.obs.Headers))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.obs.Endpoint)}
	if p.obs.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(p.obs.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(p.obs.Headers))
	}
	return otlpmetrichttp.New(ctx, opts...)
}
