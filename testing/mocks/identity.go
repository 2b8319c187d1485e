package mocks

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/jasonsandlin/xbox-live-api-go/auth"
)

// MockIdentity provides a testify-based mock implementation of auth.Identity.
//
// Example usage:
//
//	id := &mocks.MockIdentity{}
//	id.On("XboxUserID").Return("2533274790395904")
//	id.On("TokenAndSignature", mock.Anything, "GET", mock.Anything, mock.Anything).
//		Return(auth.TokenResult{Token: "t", Signature: "s", UserHash: "h"}, nil)
//	id.On("RefreshToken", mock.Anything).Return(nil).Once()
type MockIdentity struct {
	mock.Mock
}

var _ auth.Identity = (*MockIdentity)(nil)

// NewMockIdentity returns a MockIdentity that reports userID and issues tr.
// Token and refresh expectations are left to the test.
func NewMockIdentity(userID string, tr auth.TokenResult) *MockIdentity {
	m := &MockIdentity{}
	m.On("XboxUserID").Return(userID).Maybe()
	m.On("TokenAndSignature", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tr, nil).Maybe()
	return m
}

// TokenAndSignature implements auth.Identity
func (m *MockIdentity) TokenAndSignature(ctx context.Context, method, url string, headers http.Header) (auth.TokenResult, error) {
	args := m.Called(ctx, method, url, headers)
	return args.Get(0).(auth.TokenResult), args.Error(1)
}

// RefreshToken implements auth.Identity
func (m *MockIdentity) RefreshToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// XboxUserID implements auth.Identity
func (m *MockIdentity) XboxUserID() string {
	args := m.Called()
	return args.String(0)
}
