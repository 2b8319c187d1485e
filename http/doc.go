// Package http runs Xbox Live service calls with retries, shared
// throttle handling and per-attempt authentication.
//
// Lifecycle
//   - A logical call moves through idle, authenticating, sending and
//     classifying, then either succeeds, fails or retries back into sending.
//   - Credentials are fetched on every attempt so signatures cover the
//     rebuilt request.
//   - Requests are rebuilt from Request fields on each attempt.
//
// Retries
//   - Retried: network failures, 408, 429, 500, 502, 503, 504, and one 401
//     after a token refresh.
//   - Backoff: base^n to base^(n+1) seconds with timestamp jitter, capped at
//     60 seconds. A Retry-After longer than the backoff wins. A 500 waits at
//     least 10 seconds.
//   - Nothing is retried when less than 5 seconds of the timeout window
//     would remain after the delay.
//
// Throttling
//   - Calls share per-API state through a throttle.Registry. While an API
//     is throttled, one caller waits out the Retry-After and the others fail
//     fast with ErrThrottledFastFail instead of piling onto the service.
//   - A terminal 429 in a development sandbox is reported as
//     ThrottledDevSandbox unless disabled in configuration.
package http
