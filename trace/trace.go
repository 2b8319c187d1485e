// Package trace carries the correlation identifiers attached to service calls.
// A logical call keeps one correlation id across all of its retries so server
// side logs can be joined with the client's.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	correlationIDKey contextKey = "xbl_correlation_id"
	traceParentKey   contextKey = "traceparent"
	traceStateKey    contextKey = "tracestate"

	// HeaderCorrelationID is sent with every attempt of a logical call.
	HeaderCorrelationID = "X-XblCorrelationId"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns a correlation ID from context if present
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureCorrelationID returns an existing correlation ID from context or generates a new one
func EnsureCorrelationID(ctx context.Context) string {
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return id
	}
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns a traceparent from context if present
func ParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// InjectHeaders sets the correlation and trace context headers on h.
// Headers already present on h are kept. The traceparent comes from, in
// order: the context value, the active OpenTelemetry span, a fresh value.
func InjectHeaders(ctx context.Context, h http.Header, correlationID string) {
	if h.Get(HeaderCorrelationID) == "" && correlationID != "" {
		h.Set(HeaderCorrelationID, correlationID)
	}

	if h.Get(HeaderTraceParent) == "" {
		h.Set(HeaderTraceParent, traceParentFor(ctx))
	}

	if h.Get(HeaderTraceState) == "" {
		if ts, ok := StateFromContext(ctx); ok {
			h.Set(HeaderTraceState, ts)
		}
	}
}

func traceParentFor(ctx context.Context) string {
	if tp, ok := ParentFromContext(ctx); ok {
		return tp
	}
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		flags := "00"
		if sc.IsSampled() {
			flags = "01"
		}
		return "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-" + flags
	}
	return GenerateTraceParent()
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := make([]byte, 16)
	spanID := make([]byte, 8)
	if _, err := crand.Read(traceID); err != nil {
		traceID = make([]byte, 16)
	}
	if _, err := crand.Read(spanID); err != nil {
		spanID = make([]byte, 8)
	}
	if allZero(traceID) {
		traceID[len(traceID)-1] = 0x01
	}
	if allZero(spanID) {
		spanID[len(spanID)-1] = 0x01
	}
	return "00-" + strings.ToLower(hex.EncodeToString(traceID)) + "-" + strings.ToLower(hex.EncodeToString(spanID)) + "-01"
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
