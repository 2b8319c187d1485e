package http

import (
	"context"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jasonsandlin/xbox-live-api-go/http/internal/tracking"
	obstest "github.com/jasonsandlin/xbox-live-api-go/observability/testing"
	testconsts "github.com/jasonsandlin/xbox-live-api-go/testing"
	"github.com/jasonsandlin/xbox-live-api-go/throttle"
)

const testSpanName = "xbl.call " + testconsts.TestAPIName

func TestExecuteRecordsRetryTelemetry(t *testing.T) {
	mp := obstest.NewTestMeterProvider()
	tp := obstest.NewTestTraceProvider()
	clock := newFakeClock()

	e := newTestBuilder(sequence(status(nethttp.StatusServiceUnavailable), status(nethttp.StatusOK)), clock).
		WithTelemetry(mp, tp).
		Build()

	_, err := e.Execute(context.Background(), testRequest(), testIdentity())
	require.NoError(t, err)

	rm := mp.Collect(t)
	assert.Equal(t, int64(2), obstest.SumInt64(rm, tracking.MetricAttempts))
	assert.Equal(t, int64(1), obstest.SumInt64(rm, tracking.MetricAttempts, attribute.String(tracking.AttrStatusCode, "503")))
	assert.Equal(t, int64(1), obstest.SumInt64(rm, tracking.MetricRetries, attribute.String(tracking.AttrReason, "server_error")))
	assert.Equal(t, int64(0), obstest.SumInt64(rm, tracking.MetricFastFails))
	assert.Equal(t, uint64(1), obstest.HistogramCount(rm, tracking.MetricDuration))

	span := obstest.NewSpanCollector(t, tp.Exporter).WithName(testSpanName).AssertCount(1).First()
	assert.Equal(t, codes.Unset, span.Status.Code)
	obstest.AssertSpanAttribute(t, &span, tracking.AttrAPI, testconsts.TestAPIName)
	obstest.AssertSpanAttribute(t, &span, tracking.AttrStatusCode, nethttp.StatusOK)

	events := obstest.EventNames(&span)
	assert.Contains(t, events, "retry")
	assert.Len(t, obstest.EventAttributes(&span, "attempt"), 2)

	phases := obstest.EventAttributes(&span, "phase")
	require.NotEmpty(t, phases)
	assert.Contains(t, phases[len(phases)-1], attribute.String(tracking.AttrPhase, phaseSucceeded.String()))
}

func TestExecuteRecordsFastFailTelemetry(t *testing.T) {
	mp := obstest.NewTestMeterProvider()
	tp := obstest.NewTestTraceProvider()
	clock := newFakeClock()

	e := newTestBuilder(sequence(status(nethttp.StatusOK)), clock).
		WithTelemetry(mp, tp).
		Build()
	e.Registry().Set(testconsts.TestAPIName, throttle.State{
		RetryAfterTime: t0.Add(5 * time.Minute),
		LastFailure:    NewHTTPError("Too Many Requests", nethttp.StatusTooManyRequests, nil),
	})

	_, err := e.Execute(context.Background(), testRequest(), nil)
	require.ErrorIs(t, err, ErrThrottledFastFail)

	rm := mp.Collect(t)
	assert.Equal(t, int64(1), obstest.SumInt64(rm, tracking.MetricFastFails))
	assert.Equal(t, int64(0), obstest.SumInt64(rm, tracking.MetricAttempts))
	assert.Equal(t, uint64(1), obstest.HistogramCount(rm, tracking.MetricDuration,
		attribute.String(tracking.AttrErrorType, string(ThrottledFastFailError))))

	span := obstest.NewSpanCollector(t, tp.Exporter).WithName(testSpanName).First()
	obstest.AssertSpanError(t, &span, string(ThrottledFastFailError))
	assert.Contains(t, obstest.EventNames(&span), "fast_fail")
}
