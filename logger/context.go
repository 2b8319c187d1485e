package logger

import (
	"context"
	"sync/atomic"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// attemptCounterKey tracks the number of service call attempts made under a context
	attemptCounterKey contextKey = "xbl_attempt_counter"
	// attemptElapsedKey tracks the total time spent in service call attempts under a context
	attemptElapsedKey contextKey = "xbl_attempt_elapsed_nanos"
)

// WithAttemptCounter creates a new context with a service call attempt counter
// and elapsed time tracker. Callers that issue several logical calls while serving
// one unit of work can read the totals back for their own request logs.
func WithAttemptCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, attemptCounterKey, &counter)
	ctx = context.WithValue(ctx, attemptElapsedKey, &elapsed)
	return ctx
}

// IncrementAttemptCounter increments the attempt counter in the context
func IncrementAttemptCounter(ctx context.Context) {
	if counter, ok := ctx.Value(attemptCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetAttemptCounter returns the current attempt count from the context
func GetAttemptCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(attemptCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddAttemptElapsed adds elapsed nanoseconds to the attempt elapsed time in the context
func AddAttemptElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(attemptElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetAttemptElapsed returns the accumulated attempt time in nanoseconds from the context
func GetAttemptElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(attemptElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}
