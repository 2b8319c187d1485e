// Package tracking records OpenTelemetry metrics and spans for service calls.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Instrumentation scope for meters and tracers
	instrumentationName = "xbox-live-api-go/http"

	MetricAttempts  = "xbl.call.attempts"  // Counter
	MetricRetries   = "xbl.call.retries"   // Counter
	MetricFastFails = "xbl.call.fast_fails" // Counter
	MetricDuration  = "xbl.call.duration"  // Histogram in seconds

	AttrAPI        = "xbl.api"
	AttrMethod     = "http.request.method"
	AttrStatusCode = "http.response.status_code"
	AttrAttempt    = "xbl.attempt"
	AttrReason     = "xbl.retry.reason"
	AttrDelay      = "xbl.retry.delay_ms"
	AttrPhase      = "xbl.phase"
	AttrErrorType  = "error.type"
)

// Call durations include every retry and can reach the timeout window.
var durationBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// logMetricError logs a metric initialization error to stderr.
// Metrics failures must not break service calls.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize call metric %s: %v\n", metricName, err)
	}
}

// Recorder owns the instruments for service call telemetry.
// Instruments that failed to initialize are nil and skipped.
type Recorder struct {
	tracer    trace.Tracer
	attempts  metric.Int64Counter
	retries   metric.Int64Counter
	fastFails metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates a Recorder. Nil providers fall back to the otel globals.
func New(mp metric.MeterProvider, tp trace.TracerProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)
	r := &Recorder{tracer: tp.Tracer(instrumentationName)}

	var err error
	r.attempts, err = meter.Int64Counter(
		MetricAttempts,
		metric.WithDescription("Number of service call attempts sent"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(MetricAttempts, err)

	r.retries, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Number of service call retries scheduled"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)

	r.fastFails, err = meter.Int64Counter(
		MetricFastFails,
		metric.WithDescription("Number of service calls failed without sending because the API is throttled"),
		metric.WithUnit("{call}"),
	)
	logMetricError(MetricFastFails, err)

	r.duration, err = meter.Float64Histogram(
		MetricDuration,
		metric.WithDescription("Duration of logical service calls including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(MetricDuration, err)

	return r
}

// Call tracks one logical call.
type Call struct {
	r     *Recorder
	span  trace.Span
	start time.Time
	base  []attribute.KeyValue
}

// StartCall opens the span of a logical call.
func (r *Recorder) StartCall(ctx context.Context, api, method, url string) (context.Context, *Call) {
	base := []attribute.KeyValue{
		attribute.String(AttrAPI, api),
		attribute.String(AttrMethod, method),
	}
	ctx, span := r.tracer.Start(ctx, "xbl.call "+api,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attribute.String("url.full", url))...),
	)
	return ctx, &Call{r: r, span: span, start: time.Now(), base: base}
}

// Phase records a state transition of the call.
func (c *Call) Phase(phase string, attempt int) {
	c.span.AddEvent("phase", trace.WithAttributes(
		attribute.String(AttrPhase, phase),
		attribute.Int(AttrAttempt, attempt),
	))
}

// Attempt records a completed round trip. status is 0 for network failures.
func (c *Call) Attempt(ctx context.Context, attempt, status int) {
	attrs := c.with(attribute.String(AttrStatusCode, statusLabel(status)))
	if c.r.attempts != nil {
		c.r.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	c.span.AddEvent("attempt", trace.WithAttributes(
		attribute.Int(AttrAttempt, attempt),
		attribute.Int(AttrStatusCode, status),
	))
}

// Retry records a scheduled retry.
func (c *Call) Retry(ctx context.Context, reason string, delay time.Duration) {
	if c.r.retries != nil {
		c.r.retries.Add(ctx, 1, metric.WithAttributes(c.with(attribute.String(AttrReason, reason))...))
	}
	c.span.AddEvent("retry", trace.WithAttributes(
		attribute.String(AttrReason, reason),
		attribute.Int64(AttrDelay, delay.Milliseconds()),
	))
}

// FastFail records a call that ended without sending.
func (c *Call) FastFail(ctx context.Context) {
	if c.r.fastFails != nil {
		c.r.fastFails.Add(ctx, 1, metric.WithAttributes(c.base...))
	}
	c.span.AddEvent("fast_fail")
}

// End closes the call. errType is empty on success.
func (c *Call) End(ctx context.Context, status int, errType string) {
	attrs := c.with(attribute.String(AttrStatusCode, statusLabel(status)))
	if errType != "" {
		attrs = append(attrs, attribute.String(AttrErrorType, errType))
		c.span.SetStatus(codes.Error, errType)
	}
	if c.r.duration != nil {
		c.r.duration.Record(ctx, time.Since(c.start).Seconds(), metric.WithAttributes(attrs...))
	}
	c.span.SetAttributes(attribute.Int(AttrStatusCode, status))
	c.span.End()
}

func (c *Call) with(extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(c.base)+len(extra))
	attrs = append(attrs, c.base...)
	return append(attrs, extra...)
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
