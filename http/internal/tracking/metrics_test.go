package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	obstest "github.com/jasonsandlin/xbox-live-api-go/observability/testing"
)

func newTestRecorder() (*Recorder, *obstest.TestMeterProvider, *obstest.TestTraceProvider) {
	mp := obstest.NewTestMeterProvider()
	tp := obstest.NewTestTraceProvider()
	return New(mp, tp), mp, tp
}

func TestCallRecordsRetriedSuccess(t *testing.T) {
	r, mp, tp := newTestRecorder()

	ctx, call := r.StartCall(context.Background(), "achievements", "GET", "https://achievements.xboxlive.com/users")
	assert.True(t, oteltrace.SpanContextFromContext(ctx).IsValid())

	call.Phase("sending", 1)
	call.Attempt(ctx, 1, 503)
	call.Retry(ctx, "server_error", 2*time.Second)
	call.Phase("sending", 2)
	call.Attempt(ctx, 2, 200)
	call.End(ctx, 200, "")

	rm := mp.Collect(t)
	assert.Equal(t, int64(2), obstest.SumInt64(rm, MetricAttempts))
	assert.Equal(t, int64(1), obstest.SumInt64(rm, MetricAttempts, attribute.String(AttrStatusCode, "503")))
	assert.Equal(t, int64(1), obstest.SumInt64(rm, MetricRetries, attribute.String(AttrReason, "server_error")))
	assert.Equal(t, int64(0), obstest.SumInt64(rm, MetricFastFails))
	assert.Equal(t, uint64(1), obstest.HistogramCount(rm, MetricDuration, attribute.String(AttrAPI, "achievements")))

	span := obstest.NewSpanCollector(t, tp.Exporter).WithName("xbl.call achievements").AssertCount(1).First()
	assert.Equal(t, oteltrace.SpanKindClient, span.SpanKind)
	assert.Equal(t, codes.Unset, span.Status.Code)
	obstest.AssertSpanAttribute(t, &span, AttrAPI, "achievements")
	obstest.AssertSpanAttribute(t, &span, AttrMethod, "GET")
	obstest.AssertSpanAttribute(t, &span, AttrStatusCode, 200)
	assert.Equal(t, []string{"phase", "attempt", "retry", "phase", "attempt"}, obstest.EventNames(&span))

	retries := obstest.EventAttributes(&span, "retry")
	require.Len(t, retries, 1)
	assert.Contains(t, retries[0], attribute.Int64(AttrDelay, 2000))
}

func TestCallRecordsFastFail(t *testing.T) {
	r, mp, tp := newTestRecorder()

	ctx, call := r.StartCall(context.Background(), "presence", "POST", "https://userpresence.xboxlive.com")
	call.FastFail(ctx)
	call.End(ctx, 429, "throttled_fast_fail")

	rm := mp.Collect(t)
	assert.Equal(t, int64(1), obstest.SumInt64(rm, MetricFastFails, attribute.String(AttrAPI, "presence")))
	assert.Equal(t, int64(0), obstest.SumInt64(rm, MetricAttempts))
	assert.Equal(t, uint64(1), obstest.HistogramCount(rm, MetricDuration, attribute.String(AttrErrorType, "throttled_fast_fail")))

	span := obstest.NewSpanCollector(t, tp.Exporter).First()
	obstest.AssertSpanError(t, &span, "throttled_fast_fail")
	assert.Equal(t, []string{"fast_fail"}, obstest.EventNames(&span))
}

func TestNetworkFailureStatusLabel(t *testing.T) {
	r, mp, _ := newTestRecorder()

	ctx, call := r.StartCall(context.Background(), "social", "GET", "https://social.xboxlive.com")
	call.Attempt(ctx, 1, 0)
	call.End(ctx, 0, "network")

	rm := mp.Collect(t)
	assert.Equal(t, int64(1), obstest.SumInt64(rm, MetricAttempts, attribute.String(AttrStatusCode, "none")))
}

func TestNewFallsBackToGlobals(t *testing.T) {
	r := New(nil, nil)
	require.NotNil(t, r)

	assert.NotPanics(t, func() {
		ctx, call := r.StartCall(context.Background(), "achievements", "GET", "https://example.com")
		call.Attempt(ctx, 1, 200)
		call.End(ctx, 200, "")
	})
}
