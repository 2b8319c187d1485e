// Package testing provides in-memory OpenTelemetry providers and assertions
// for tests of instrumented service calls.
//
// Usage:
//
//	tp := NewTestTraceProvider()
//	mp := NewTestMeterProvider()
//	executor := http.NewBuilder(log).WithTelemetry(mp, tp).Build()
//
//	// ... run calls ...
//
//	span := NewSpanCollector(t, tp.Exporter).WithName("xbl.call achievements").First()
//	AssertSpanAttribute(t, &span, "xbl.api", "achievements")
//	assert.Equal(t, int64(2), SumInt64(mp.Collect(t), "xbl.call.attempts"))
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const attrValueMismatchErrMsg = "attribute %s value mismatch"

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously
// into memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	return &TestTraceProvider{
		TracerProvider: provider,
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider read on demand with Collect.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	return &TestMeterProvider{
		MeterProvider: provider,
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	err := tmp.Reader.Collect(context.Background(), &rm)
	require.NoError(t, err, "failed to collect metrics")
	return rm
}

// SpanCollector provides a fluent API for filtering and asserting on captured spans.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector creates a span collector from an in-memory exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{
		t:     t,
		spans: exporter.GetSpans(),
	}
}

// Len returns the number of collected spans.
func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// WithName filters spans by name and returns a new collector.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	sc.t.Helper()
	filtered := make(tracetest.SpanStubs, 0)
	for i := range sc.spans {
		if sc.spans[i].Name == name {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First returns the first span in the collection.
// Fails the test if the collection is empty.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

// AssertCount asserts the number of collected spans.
func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

// AssertSpanAttribute asserts that a span has a specific attribute with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assertValue(t, key, attr.Value, expected)
			return
		}
	}
	t.Errorf("attribute %s not found in span", key)
}

// AssertSpanError asserts that a span has an error status with the expected description.
func AssertSpanError(t *testing.T, span *tracetest.SpanStub, expectedDesc string) {
	t.Helper()
	assert.Equal(t, codes.Error, span.Status.Code, "expected error status")
	if expectedDesc != "" {
		assert.Equal(t, expectedDesc, span.Status.Description, "span error description mismatch")
	}
}

// EventNames lists the span's event names in order.
func EventNames(span *tracetest.SpanStub) []string {
	names := make([]string, 0, len(span.Events))
	for _, e := range span.Events {
		names = append(names, e.Name)
	}
	return names
}

// EventAttributes returns the attributes of every event named name, in order.
func EventAttributes(span *tracetest.SpanStub, name string) [][]attribute.KeyValue {
	var out [][]attribute.KeyValue
	for _, e := range span.Events {
		if e.Name == name {
			out = append(out, e.Attributes)
		}
	}
	return out
}

func assertValue(t *testing.T, key string, actual attribute.Value, expected any) {
	t.Helper()
	switch v := expected.(type) {
	case string:
		assert.Equal(t, v, actual.AsString(), attrValueMismatchErrMsg, key)
	case int:
		assert.Equal(t, int64(v), actual.AsInt64(), attrValueMismatchErrMsg, key)
	case int64:
		assert.Equal(t, v, actual.AsInt64(), attrValueMismatchErrMsg, key)
	case float64:
		assert.Equal(t, v, actual.AsFloat64(), attrValueMismatchErrMsg, key)
	case bool:
		assert.Equal(t, v, actual.AsBool(), attrValueMismatchErrMsg, key)
	default:
		t.Fatalf("unsupported attribute value type: %T", expected)
	}
}

// FindMetric returns the metric named metricName, or nil.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// SumInt64 totals an int64 counter across all attribute sets matching
// filter. A nil filter matches every data point; a missing metric sums to 0.
func SumInt64(rm metricdata.ResourceMetrics, metricName string, filter ...attribute.KeyValue) int64 {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0
	}
	data, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range data.DataPoints {
		if hasAll(dp.Attributes, filter) {
			total += dp.Value
		}
	}
	return total
}

// HistogramCount totals the recordings of a float64 histogram across all
// attribute sets matching filter.
func HistogramCount(rm metricdata.ResourceMetrics, metricName string, filter ...attribute.KeyValue) uint64 {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0
	}
	data, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0
	}
	var total uint64
	for _, dp := range data.DataPoints {
		if hasAll(dp.Attributes, filter) {
			total += dp.Count
		}
	}
	return total
}

func hasAll(set attribute.Set, filter []attribute.KeyValue) bool {
	for _, kv := range filter {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}
