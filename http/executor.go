package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/jasonsandlin/xbox-live-api-go/auth"
	"github.com/jasonsandlin/xbox-live-api-go/http/internal/tracking"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
	"github.com/jasonsandlin/xbox-live-api-go/retry"
	"github.com/jasonsandlin/xbox-live-api-go/throttle"
	"github.com/jasonsandlin/xbox-live-api-go/trace"
	"github.com/jasonsandlin/xbox-live-api-go/validation"
)

// Doer sends one wire request. *net/http.Client satisfies it.
type Doer interface {
	Do(req *nethttp.Request) (*nethttp.Response, error)
}

// Executor runs logical service calls: it attaches credentials, sends,
// classifies the outcome and retries under the policy, sharing throttle
// state per API with every other call made through the same registry.
// An Executor is safe for concurrent use.
type Executor struct {
	doer      Doer
	registry  *throttle.Registry
	pacer     *throttle.Pacer
	policy    retry.Policy
	attacher  *auth.Attacher
	settings  Settings
	defaults  nethttp.Header
	sleep     retry.SleepFunc
	now       func() time.Time
	log       logger.Logger
	tracker   *tracking.Recorder
	validator *validation.Validator
}

// NewExecutor creates an executor with default settings
func NewExecutor(log logger.Logger) *Executor {
	return NewBuilder(log).Build()
}

// Registry returns the throttle registry shared by the executor's calls.
func (e *Executor) Registry() *throttle.Registry {
	return e.registry
}

// Get performs a GET call
func (e *Executor) Get(ctx context.Context, server, pathQuery string, id auth.Identity) (*Response, error) {
	return e.Execute(ctx, NewRequest(nethttp.MethodGet, server, pathQuery), id)
}

// Post performs a POST call with a JSON body
func (e *Executor) Post(ctx context.Context, server, pathQuery string, body []byte, id auth.Identity) (*Response, error) {
	req := NewRequest(nethttp.MethodPost, server, pathQuery)
	req.Body = body
	return e.Execute(ctx, req, id)
}

// Put performs a PUT call with a JSON body
func (e *Executor) Put(ctx context.Context, server, pathQuery string, body []byte, id auth.Identity) (*Response, error) {
	req := NewRequest(nethttp.MethodPut, server, pathQuery)
	req.Body = body
	return e.Execute(ctx, req, id)
}

// Delete performs a DELETE call
func (e *Executor) Delete(ctx context.Context, server, pathQuery string, id auth.Identity) (*Response, error) {
	return e.Execute(ctx, NewRequest(nethttp.MethodDelete, server, pathQuery), id)
}

// ExecuteWithoutAuth runs a call that carries no credentials.
func (e *Executor) ExecuteWithoutAuth(ctx context.Context, req *Request) (*Response, error) {
	return e.Execute(ctx, req, nil)
}

// Execute runs one logical call. A nil identity sends the call without
// credentials. The returned response is the last one obtained, possibly
// alongside an error; it is nil only when nothing was sent.
func (e *Executor) Execute(ctx context.Context, req *Request, id auth.Identity) (*Response, error) {
	if err := validateRequest(e.validator, req); err != nil {
		return nil, err
	}

	api := req.apiName()
	correlationID := trace.EnsureCorrelationID(ctx)
	ctx = trace.WithCorrelationID(ctx, correlationID)
	ctx, tracked := e.tracker.StartCall(ctx, api, req.Method, req.URL)

	c := &call{
		e:             e,
		req:           req,
		id:            id,
		api:           api,
		correlationID: correlationID,
		tracked:       tracked,
		log: e.log.WithFields(map[string]any{
			"api":            api,
			"method":         req.Method,
			"correlation_id": correlationID,
		}),
	}
	resp, err := c.run(ctx)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	tracked.End(ctx, status, errorType(err))
	return resp, err
}

// call is the state of one logical call. It is confined to the goroutine
// running Execute.
type call struct {
	e             *Executor
	req           *Request
	id            auth.Identity
	api           string
	correlationID string
	tracked       *tracking.Call
	log           logger.Logger

	phase callPhase
	state retry.CallState
	// recorded is the RetryAfterTime this call last wrote to the registry.
	recorded time.Time
}

func (c *call) transition(p callPhase) {
	c.log.Debug().
		Str("from", c.phase.String()).
		Str("to", p.String()).
		Int("attempt", c.state.Iteration).
		Msg("Call phase")
	c.phase = p
	c.tracked.Phase(p.String(), c.state.Iteration)
}

func (c *call) run(ctx context.Context) (*Response, error) {
	e := c.e
	for {
		c.state.BeginAttempt(e.now())
		logger.IncrementAttemptCounter(ctx)

		if resp, done, err := c.preflight(ctx); done {
			c.transition(phaseFailed)
			return resp, err
		}

		headers := e.attemptHeaders(ctx, c.req, c.correlationID)
		if c.id != nil {
			c.transition(phaseAuthenticating)
			tr, err := e.attacher.Attach(ctx, c.id, c.req.Method, c.req.URL, headers)
			if err != nil {
				c.transition(phaseFailed)
				c.log.Error().Err(err).Int("attempt", c.state.Iteration).Msg("Service call authentication failed")
				return nil, NewAuthError(err)
			}
			e.attacher.Apply(headers, tr)
		}

		c.transition(phaseSending)
		resp, err := c.send(ctx, headers)
		if err != nil {
			c.transition(phaseFailed)
			c.log.Error().Err(err).Int("attempt", c.state.Iteration).Msg("Service call failed")
			return resp, err
		}

		c.transition(phaseClassifying)
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.transition(phaseFailed)
			return resp, NewNetworkError("call canceled", ctxErr)
		}

		decision := e.policy.Decide(c.outcome(resp), c.state)
		if !decision.Retry {
			return c.finish(resp, decision)
		}

		c.transition(phaseRetrying)
		if err := c.retry(ctx, resp, decision); err != nil {
			c.transition(phaseFailed)
			return resp, err
		}
	}
}

// preflight consults the shared throttle state before an attempt. done is
// true when the call must end without sending.
func (c *call) preflight(ctx context.Context) (*Response, bool, error) {
	e := c.e
	st := e.registry.Get(c.api)
	if !st.Active() {
		return nil, false, nil
	}
	// State written by this call's own retry was already slept out.
	if !st.Waiting && !c.recorded.IsZero() && st.RetryAfterTime.Equal(c.recorded) {
		return nil, false, nil
	}

	pd := e.policy.Preflight(st, c.state, e.now())
	switch pd.Action {
	case retry.Proceed:
		e.registry.ClearIdle(c.api)
		return nil, false, nil
	case retry.Wait:
		if !e.registry.TryBeginWait(c.api, st) {
			return c.fastFail(ctx, st)
		}
		c.log.Debug().Dur("wait", pd.Wait).Msg("Waiting for throttled API")
		sleepErr := e.sleep(ctx, pd.Wait)
		e.registry.EndWait(c.api)
		if sleepErr != nil {
			return nil, true, NewNetworkError("call canceled", sleepErr)
		}
		return nil, false, nil
	default:
		return c.fastFail(ctx, st)
	}
}

func (c *call) fastFail(ctx context.Context, st throttle.State) (*Response, bool, error) {
	c.tracked.FastFail(ctx)
	c.log.Warn().
		Time("retry_after", st.RetryAfterTime).
		Int("attempt", c.state.Iteration).
		Msg("API throttled, failing fast")

	var resp *Response
	if last, ok := st.LastResponse.(*Response); ok && last != nil {
		cp := *last
		resp = &cp
	}
	return resp, true, NewThrottledFastFailError(c.api, st.LastFailure)
}

func (c *call) send(ctx context.Context, headers nethttp.Header) (*Response, error) {
	e := c.e
	if err := e.pacer.Wait(ctx, c.api); err != nil {
		return nil, NewNetworkError("pacing wait", err)
	}

	httpReq, err := c.req.build(ctx, headers)
	if err != nil {
		return nil, err
	}

	started := e.now()
	httpResp, transportErr := e.doer.Do(httpReq)
	received := e.now()

	resp, err := newResponse(c.req, httpResp, transportErr, started, received)
	resp.Attempt = c.state.Iteration
	if c.id != nil {
		resp.XboxUserID = c.id.XboxUserID()
	}

	logger.AddAttemptElapsed(ctx, int64(received.Sub(started)))
	c.tracked.Attempt(ctx, resp.Attempt, resp.StatusCode)
	c.log.Debug().
		Int("attempt", resp.Attempt).
		Int("status", resp.StatusCode).
		Bool("network_failure", resp.IsNetworkFailure).
		Dur("elapsed", resp.Elapsed()).
		Msg("Service call attempt")
	return resp, err
}

func (c *call) outcome(resp *Response) retry.Outcome {
	return retry.Outcome{
		StatusCode:     resp.StatusCode,
		NetworkFailure: resp.IsNetworkFailure,
		RetryAfter:     resp.RetryAfter,
		ReceivedAt:     resp.ResponseReceivedTime,
		RetryAllowed:   c.req.RetryAllowed,
		HasIdentity:    c.id != nil,
	}
}

func (c *call) retry(ctx context.Context, resp *Response, d retry.Decision) error {
	e := c.e

	unauthorized := resp.StatusCode == nethttp.StatusUnauthorized
	if unauthorized {
		// An anonymous call has nothing to refresh but still gets one retry.
		if d.Reauthenticate {
			if err := e.attacher.Refresh(ctx, c.id); err != nil {
				c.log.Warn().Err(err).Msg("Token refresh after 401 failed")
				return statusError(resp)
			}
		}
		c.state.HasRetriedAuthOnce = true
	}

	c.state.DelayBeforeRetry = d.Delay
	st := throttle.State{
		RetryAfterTime: resp.ResponseReceivedTime.Add(d.Delay),
		LastFailure:    failureOf(resp),
		LastResponse:   resp,
	}

	switch {
	case d.Throttled:
		if !e.registry.TryBeginWait(c.api, st) {
			c.tracked.FastFail(ctx)
			c.log.Warn().Int("attempt", c.state.Iteration).Msg("Another call is waiting out the throttle, failing fast")
			return NewThrottledFastFailError(c.api, st.LastFailure)
		}
		defer e.registry.EndWait(c.api)
	case !unauthorized:
		if e.registry.Record(c.api, st) {
			c.recorded = st.RetryAfterTime
		}
	}

	reason := retryReason(resp)
	c.tracked.Retry(ctx, reason, d.Delay)
	c.log.Warn().
		Int("attempt", c.state.Iteration).
		Int("status", resp.StatusCode).
		Str("reason", reason).
		Dur("delay", d.Delay).
		Msg("Retrying service call")

	if err := e.sleep(ctx, d.Delay); err != nil {
		return NewNetworkError("call canceled", err)
	}
	return nil
}

// finish ends the call with its last outcome and updates the shared state:
// outcomes that may repeat are recorded, clean ones clear the API.
func (c *call) finish(resp *Response, d retry.Decision) (*Response, error) {
	e := c.e

	var err error
	switch {
	case resp.IsNetworkFailure:
		err = NewNetworkError("no response", resp.Err)
	case !IsSuccessStatus(resp.StatusCode):
		err = statusError(resp)
	}

	switch {
	case resp.IsNetworkFailure:
	case repeatable(resp.StatusCode):
		delay := d.Delay
		if resp.RetryAfter > delay {
			delay = resp.RetryAfter
		}
		if delay > 0 {
			e.registry.Record(c.api, throttle.State{
				RetryAfterTime: resp.ResponseReceivedTime.Add(delay),
				LastFailure:    err,
				LastResponse:   resp,
			})
		}
	default:
		e.registry.ClearIdle(c.api)
	}

	if resp.StatusCode == nethttp.StatusTooManyRequests && e.settings.DevSandbox() && !e.settings.DisableThrottleAsserts {
		err = NewThrottledDevSandboxError(c.api, e.settings.Sandbox)
	}

	if err == nil {
		c.transition(phaseSucceeded)
		return resp, nil
	}
	c.transition(phaseFailed)
	c.log.Error().
		Err(err).
		Int("attempt", c.state.Iteration).
		Int("status", resp.StatusCode).
		Str("reason", string(d.Reason)).
		Msg("Service call failed")
	return resp, err
}

// repeatable reports statuses that tend to repeat for other callers.
func repeatable(status int) bool {
	switch status {
	case nethttp.StatusRequestTimeout,
		nethttp.StatusTooManyRequests,
		nethttp.StatusInternalServerError,
		nethttp.StatusBadGateway,
		nethttp.StatusServiceUnavailable,
		nethttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func statusError(resp *Response) error {
	msg := nethttp.StatusText(resp.StatusCode)
	if msg == "" {
		msg = "unexpected status"
	}
	return NewHTTPError(msg, resp.StatusCode, resp.Body)
}

func failureOf(resp *Response) error {
	if resp.IsNetworkFailure {
		return NewNetworkError("no response", resp.Err)
	}
	return statusError(resp)
}

func retryReason(resp *Response) string {
	switch {
	case resp.IsNetworkFailure:
		return "network"
	case resp.StatusCode == nethttp.StatusUnauthorized:
		return "unauthorized"
	case resp.StatusCode == nethttp.StatusTooManyRequests:
		return "throttled"
	case resp.StatusCode == nethttp.StatusRequestTimeout:
		return "timeout"
	default:
		return "server_error"
	}
}

func errorType(err error) string {
	if err == nil {
		return ""
	}
	var ce CallError
	if errors.As(err, &ce) {
		return string(ce.Type())
	}
	return "unknown"
}
