package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanCollector(t *testing.T) {
	tp := NewTestTraceProvider()
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "xbl.call presence",
		trace.WithAttributes(
			attribute.String("xbl.api", "presence"),
			attribute.Int("xbl.attempt", 2),
			attribute.Bool("xbl.network_failure", false),
		))
	span.AddEvent("attempt")
	span.AddEvent("retry", trace.WithAttributes(attribute.String("xbl.retry.reason", "throttled")))
	span.AddEvent("attempt")
	span.SetStatus(codes.Error, "http")
	span.End()

	_, other := tracer.Start(context.Background(), "xbl.call profile")
	other.End()

	all := NewSpanCollector(t, tp.Exporter)
	assert.Equal(t, 2, all.Len())

	stub := all.WithName("xbl.call presence").AssertCount(1).First()
	AssertSpanAttribute(t, &stub, "xbl.api", "presence")
	AssertSpanAttribute(t, &stub, "xbl.attempt", 2)
	AssertSpanAttribute(t, &stub, "xbl.network_failure", false)
	AssertSpanError(t, &stub, "http")

	assert.Equal(t, []string{"attempt", "retry", "attempt"}, EventNames(&stub))

	retries := EventAttributes(&stub, "retry")
	require.Len(t, retries, 1)
	assert.Equal(t, attribute.String("xbl.retry.reason", "throttled"), retries[0][0])

	assert.Equal(t, 0, all.WithName("missing").Len())
}

func TestMetricHelpers(t *testing.T) {
	mp := NewTestMeterProvider()
	meter := mp.Meter("test")

	counter, err := meter.Int64Counter("xbl.call.attempts")
	require.NoError(t, err)
	hist, err := meter.Float64Histogram("xbl.call.duration")
	require.NoError(t, err)

	ctx := context.Background()
	ok := metric.WithAttributes(attribute.String("http.response.status_code", "200"))
	busy := metric.WithAttributes(attribute.String("http.response.status_code", "503"))
	counter.Add(ctx, 1, ok)
	counter.Add(ctx, 2, busy)
	hist.Record(ctx, 0.5, ok)
	hist.Record(ctx, 1.5, busy)
	hist.Record(ctx, 2.5, busy)

	rm := mp.Collect(t)

	require.NotNil(t, FindMetric(rm, "xbl.call.attempts"))
	assert.Nil(t, FindMetric(rm, "xbl.call.unknown"))

	assert.Equal(t, int64(3), SumInt64(rm, "xbl.call.attempts"))
	assert.Equal(t, int64(2), SumInt64(rm, "xbl.call.attempts", attribute.String("http.response.status_code", "503")))
	assert.Equal(t, int64(0), SumInt64(rm, "xbl.call.attempts", attribute.String("http.response.status_code", "404")))
	assert.Equal(t, int64(0), SumInt64(rm, "xbl.call.duration"), "histogram is not a sum")

	assert.Equal(t, uint64(3), HistogramCount(rm, "xbl.call.duration"))
	assert.Equal(t, uint64(1), HistogramCount(rm, "xbl.call.duration", attribute.String("http.response.status_code", "200")))
	assert.Equal(t, uint64(0), HistogramCount(rm, "xbl.call.missing"))
}
