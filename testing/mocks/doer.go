package mocks

import (
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockDoer provides a testify-based mock of the transport used by the call
// executor. It also records every request it receives so tests can inspect
// the headers of individual attempts.
//
// Example usage:
//
//	doer := mocks.NewMockDoer()
//	doer.On("Do", mock.Anything).Return(fixtures.Status(503), nil).Once()
//	doer.On("Do", mock.Anything).Return(fixtures.JSON(200, `{"ok":true}`), nil)
//
// A response given as a func(*http.Request) *http.Response is invoked per
// call, which keeps single-use bodies fresh across repeated matches.
type MockDoer struct {
	mock.Mock

	mu       sync.Mutex
	requests []*http.Request
}

// NewMockDoer creates a new mock transport
func NewMockDoer() *MockDoer {
	return &MockDoer{}
}

// Do records the request and returns the configured response.
func (m *MockDoer) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	args := m.Called(req)

	var resp *http.Response
	switch v := args.Get(0).(type) {
	case *http.Response:
		resp = v
	case func(*http.Request) *http.Response:
		resp = v(req)
	}
	if resp != nil && resp.Request == nil {
		resp.Request = req
	}
	return resp, args.Error(1)
}

// Requests returns the requests received so far.
func (m *MockDoer) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*http.Request, len(m.requests))
	copy(out, m.requests)
	return out
}
