package retry

import (
	"math"
	"net/http"
	"time"
)

const (
	// MinRemainingBudget is the least time left in the timeout window that is
	// worth another attempt.
	MinRemainingBudget = 5 * time.Second
	// MinServerErrorDelay is the floor applied to the delay after a 500.
	MinServerErrorDelay = 10 * time.Second
	// MaxDelay caps a single computed backoff.
	MaxDelay = 60 * time.Second
)

// Reason explains a Decision in logs and metrics.
type Reason string

const (
	ReasonRetry              Reason = "retry"
	ReasonRetryDisallowed    Reason = "retry_disallowed"
	ReasonNotRetryable       Reason = "not_retryable"
	ReasonBudgetExhausted    Reason = "budget_exhausted"
	ReasonDelayExceedsBudget Reason = "delay_exceeds_budget"
)

// Outcome is what one attempt produced, reduced to the inputs of the decision.
type Outcome struct {
	StatusCode     int // 0 when no response was obtained
	NetworkFailure bool
	RetryAfter     time.Duration // 0 when the response carried none
	ReceivedAt     time.Time
	RetryAllowed   bool
	HasIdentity    bool
}

// CallState is owned by one logical call and survives across its attempts.
type CallState struct {
	// Iteration counts attempts started so far.
	Iteration          int
	FirstAttemptTime   time.Time
	DelayBeforeRetry   time.Duration
	HasRetriedAuthOnce bool
}

// BeginAttempt advances the state at the start of an attempt.
func (s *CallState) BeginAttempt(now time.Time) {
	if s.Iteration == 0 {
		s.FirstAttemptTime = now
	}
	s.Iteration++
}

// Decision is the verdict for one outcome.
type Decision struct {
	Retry bool
	Delay time.Duration
	// Reauthenticate asks the caller to refresh credentials before retrying.
	// A failed refresh ends the call with the 401.
	Reauthenticate bool
	// Throttled marks a 429; only one concurrent caller per API may wait it out.
	Throttled bool
	Reason    Reason
}

// Policy holds the settings the decision depends on.
type Policy struct {
	TimeoutWindow  time.Duration
	RetryDelayBase time.Duration
	Jitter         JitterFunc
}

// NewPolicy returns a Policy using TimestampJitter.
func NewPolicy(timeoutWindow, retryDelayBase time.Duration) Policy {
	return Policy{
		TimeoutWindow:  timeoutWindow,
		RetryDelayBase: retryDelayBase,
		Jitter:         TimestampJitter,
	}
}

// Decide evaluates the retry rules in order and returns the first that applies.
func (p Policy) Decide(o Outcome, s CallState) Decision {
	if !o.RetryAllowed && !(o.StatusCode == http.StatusUnauthorized && o.HasIdentity) {
		return Decision{Reason: ReasonRetryDisallowed}
	}

	if !Retryable(o, s) {
		return Decision{Reason: ReasonNotRetryable}
	}

	remaining := p.TimeoutWindow - o.ReceivedAt.Sub(s.FirstAttemptTime)
	if remaining <= MinRemainingBudget {
		return Decision{Reason: ReasonBudgetExhausted}
	}

	delay := p.Backoff(s.Iteration, o.ReceivedAt)
	if o.RetryAfter > delay {
		delay = o.RetryAfter
	}

	if delay > remaining-MinRemainingBudget {
		return Decision{Reason: ReasonDelayExceedsBudget, Delay: delay}
	}

	d := Decision{Retry: true, Delay: delay, Reason: ReasonRetry}
	switch o.StatusCode {
	case http.StatusInternalServerError:
		if d.Delay < MinServerErrorDelay {
			d.Delay = MinServerErrorDelay
		}
	case http.StatusUnauthorized:
		d.Reauthenticate = o.HasIdentity
	case http.StatusTooManyRequests:
		d.Throttled = true
	}
	return d
}

// Backoff returns the jittered delay for the given attempt number, capped at MaxDelay.
func (p Policy) Backoff(iteration int, at time.Time) time.Duration {
	base := p.RetryDelayBase.Seconds()
	minWait := math.Pow(base, float64(iteration))
	maxWait := math.Pow(base, float64(iteration+1))

	secs := minWait + (maxWait-minWait)*p.jitter(at)
	if secs >= MaxDelay.Seconds() || math.IsInf(secs, 0) || math.IsNaN(secs) {
		return MaxDelay
	}
	return time.Duration(secs * float64(time.Second))
}

func (p Policy) jitter(at time.Time) float64 {
	j := p.Jitter
	if j == nil {
		j = TimestampJitter
	}
	f := j(at)
	if f < 0 || f >= 1 || math.IsNaN(f) {
		return 0
	}
	return f
}

// Retryable reports whether the outcome is one of the retryable kinds:
// a network failure, 408, 429, 500, 502, 503, 504, or the first 401 of a call.
func Retryable(o Outcome, s CallState) bool {
	if o.NetworkFailure {
		return true
	}
	switch o.StatusCode {
	case http.StatusUnauthorized:
		return !s.HasRetriedAuthOnce
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
