// Package retry decides whether a failed service call attempt is retried and
// how long to wait first.
//
// The decision is a pure function of the attempt outcome, the call's own
// state and the policy settings. Waiting, re-authentication and the shared
// throttle bookkeeping are carried out by the caller; Decision only says
// which of them apply.
//
// Backoff grows geometrically: attempt n waits between base^n and base^(n+1)
// seconds, interpolated by a jitter fraction and capped at MaxDelay. An
// explicit Retry-After from the server wins when it is longer.
package retry
