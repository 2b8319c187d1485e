package trace

import (
	"context"
	nethttp "net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestHeaderConstants(t *testing.T) {
	assert.Equal(t, "X-XblCorrelationId", HeaderCorrelationID)
	assert.Equal(t, "traceparent", HeaderTraceParent)
	assert.Equal(t, "tracestate", HeaderTraceState)
}

func TestEnsureCorrelationID_UsesExisting(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "existing-id")
	assert.Equal(t, "existing-id", EnsureCorrelationID(ctx))
}

func TestEnsureCorrelationID_GeneratesWhenMissing(t *testing.T) {
	got := EnsureCorrelationID(context.Background())
	re := regexp.MustCompile(`^[a-f0-9\-]{36}$`)
	assert.True(t, re.MatchString(strings.ToLower(got)))
}

func TestCorrelationIDFromContext_Missing(t *testing.T) {
	_, ok := CorrelationIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestTraceParent_ContextRoundTrip(t *testing.T) {
	in := "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	out, ok := ParentFromContext(WithTraceParent(context.Background(), in))
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestTraceState_ContextRoundTrip(t *testing.T) {
	in := "vendor=a:b,c=d"
	out, ok := StateFromContext(WithTraceState(context.Background(), in))
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestGenerateTraceParent_Format(t *testing.T) {
	parts := strings.Split(GenerateTraceParent(), "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "00", parts[0])
	assert.Len(t, parts[1], 32)
	assert.Len(t, parts[2], 16)
	assert.Equal(t, "01", parts[3])

	hexRe := regexp.MustCompile(`^[0-9a-f]+$`)
	assert.True(t, hexRe.MatchString(parts[1]))
	assert.True(t, hexRe.MatchString(parts[2]))
}

func TestInjectHeaders_PreservesExisting(t *testing.T) {
	headers := nethttp.Header{}
	headers.Set(HeaderCorrelationID, "pre-id")
	headers.Set(HeaderTraceParent, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01")
	headers.Set(HeaderTraceState, "vendor=a:b")

	ctx := WithTraceParent(context.Background(), "00-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-bbbbbbbbbbbbbbbb-01")
	ctx = WithTraceState(ctx, "vendor=ctx")

	InjectHeaders(ctx, headers, "call-id")

	assert.Equal(t, "pre-id", headers.Get(HeaderCorrelationID))
	assert.Equal(t, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01", headers.Get(HeaderTraceParent))
	assert.Equal(t, "vendor=a:b", headers.Get(HeaderTraceState))
}

func TestInjectHeaders_FillsFromContext(t *testing.T) {
	headers := nethttp.Header{}
	ctx := WithTraceParent(context.Background(), "00-deadbeefdeadbeefdeadbeefdeadbeef-0123456789abcdef-01")
	ctx = WithTraceState(ctx, "vendor=x")

	InjectHeaders(ctx, headers, "call-id")

	assert.Equal(t, "call-id", headers.Get(HeaderCorrelationID))
	assert.Equal(t, "00-deadbeefdeadbeefdeadbeefdeadbeef-0123456789abcdef-01", headers.Get(HeaderTraceParent))
	assert.Equal(t, "vendor=x", headers.Get(HeaderTraceState))
}

func TestInjectHeaders_UsesActiveSpan(t *testing.T) {
	traceID, err := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: oteltrace.FlagsSampled,
	})
	ctx := oteltrace.ContextWithSpanContext(context.Background(), sc)

	headers := nethttp.Header{}
	InjectHeaders(ctx, headers, "")

	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headers.Get(HeaderTraceParent))
	assert.Empty(t, headers.Get(HeaderCorrelationID))
	assert.Empty(t, headers.Get(HeaderTraceState))
}
