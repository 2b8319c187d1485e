package retry

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done, returning ctx.Err() in that case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MaxRetryAfter is the longest Retry-After ParseRetryAfter reports; larger
// delta-seconds values are clamped to it.
const MaxRetryAfter = time.Duration(math.MaxInt64 / int64(time.Second) * int64(time.Second))

const maxRetryAfterSeconds = int64(MaxRetryAfter / time.Second)

// ParseRetryAfter reads a Retry-After value given either as delta-seconds or
// as an HTTP-date, which is measured from receivedAt. Dates in the past
// yield 0. The boolean is false when the value is absent or malformed.
func ParseRetryAfter(value string, receivedAt time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		switch {
		case secs < 0:
			return 0, false
		case secs > maxRetryAfterSeconds:
			return MaxRetryAfter, true
		}
		return time.Duration(secs) * time.Second, true
	}

	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(receivedAt)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}
