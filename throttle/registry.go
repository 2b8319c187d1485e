// Package throttle holds the per-API back-off state shared by concurrent
// service calls, plus optional client-side pacing.
package throttle

import (
	"sync"
	"time"
)

// State is the back-off state recorded for one API identifier.
// The zero value means the API is not throttled.
type State struct {
	// RetryAfterTime is when the API becomes callable again.
	RetryAfterTime time.Time
	// LastFailure is non-nil while a fast-fail window is active.
	LastFailure error
	// LastResponse is the response snapshot handed to callers that fast-fail.
	// The registry never inspects it.
	LastResponse any
	// Waiting is true while one caller sleeps out the Retry-After window.
	Waiting bool
}

// Active reports whether a prior failure is recorded.
func (s State) Active() bool {
	return s.LastFailure != nil
}

// Registry is a thread-safe API identifier → State map.
// A single mutex guards every entry; entries are keyed by API, not by call,
// so contention stays low.
type Registry struct {
	mu sync.Mutex
	m  map[string]State
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]State)}
}

// Get returns the state for api, or the zero State when none is recorded.
func (r *Registry) Get(api string) State {
	if r == nil {
		return State{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[api]
}

// Set records the state for api.
func (r *Registry) Set(api string, s State) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]State)
	}
	r.m[api] = s
}

// Clear removes any state recorded for api.
func (r *Registry) Clear(api string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, api)
}

// TryBeginWait records s for api with Waiting set, unless another caller is
// already waiting on api. It returns false in that case and leaves the entry
// untouched. At most one caller per API holds the wait at a time.
func (r *Registry) TryBeginWait(api string, s State) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]State)
	}
	if r.m[api].Waiting {
		return false
	}
	s.Waiting = true
	r.m[api] = s
	return true
}

// EndWait releases the wait on api. The entry is cleared: the waiter is about
// to retry and its outcome records fresh state.
func (r *Registry) EndWait(api string) {
	r.Clear(api)
}

// Len returns the number of APIs with recorded state.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Record sets s for api unless a caller is waiting on api, in which case the
// waiter's entry is kept and Record returns false.
func (r *Registry) Record(api string, s State) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]State)
	}
	if r.m[api].Waiting {
		return false
	}
	s.Waiting = false
	r.m[api] = s
	return true
}

// ClearIdle removes the state recorded for api unless a caller is waiting on it.
func (r *Registry) ClearIdle(api string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.m[api].Waiting {
		delete(r.m, api)
	}
}
