package retry

import "time"

// JitterFunc maps a response timestamp to a fraction in [0,1).
type JitterFunc func(time.Time) float64

// TimestampJitter derives the fraction from the minute, second and
// millisecond of t. It is deterministic in t and not a source of randomness;
// spread comes from responses arriving at different clock times.
func TimestampJitter(t time.Time) float64 {
	ms := t.Minute()*60000 + t.Second()*1000 + t.Nanosecond()/int(time.Millisecond)
	return float64(ms%10000) / 10000
}

// ZeroJitter always returns 0, making Backoff return the lower bound.
func ZeroJitter(time.Time) float64 {
	return 0
}

// FixedJitter always returns f.
func FixedJitter(f float64) JitterFunc {
	return func(time.Time) float64 { return f }
}
