package retry

import (
	"time"

	"github.com/jasonsandlin/xbox-live-api-go/throttle"
)

// PreflightAction is what to do before sending an attempt to a possibly
// throttled API.
type PreflightAction int

const (
	// Proceed sends the attempt now.
	Proceed PreflightAction = iota
	// Wait sleeps until the recorded Retry-After passes, then sends.
	Wait
	// FastFail returns the recorded failure without sending.
	FastFail
)

func (a PreflightAction) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Wait:
		return "wait"
	case FastFail:
		return "fast_fail"
	default:
		return "unknown"
	}
}

// PreflightDecision carries the action and, for Wait, how long.
type PreflightDecision struct {
	Action PreflightAction
	Wait   time.Duration
}

// Preflight checks the shared state of the target API. A recorded
// Retry-After that ends inside the call's own timeout window is waited out;
// one that ends later makes the attempt pointless, so the call fails fast.
func (p Policy) Preflight(state throttle.State, s CallState, now time.Time) PreflightDecision {
	if !state.Active() {
		return PreflightDecision{Action: Proceed}
	}

	remaining := state.RetryAfterTime.Sub(now)
	if remaining <= 0 {
		return PreflightDecision{Action: Proceed}
	}

	deadline := s.FirstAttemptTime.Add(p.TimeoutWindow)
	if state.RetryAfterTime.Before(deadline) {
		return PreflightDecision{Action: Wait, Wait: remaining}
	}
	return PreflightDecision{Action: FastFail}
}
