// Package auth attaches per-call credentials produced by an injected identity.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// TokenResult is the credential material for one request.
type TokenResult struct {
	Token     string
	Signature string
	UserHash  string
}

// Identity produces credentials for a signed-in user. Implementations talk to
// a token service and must be safe for concurrent use.
type Identity interface {
	// TokenAndSignature returns a token and a signature covering the request.
	TokenAndSignature(ctx context.Context, method, url string, headers http.Header) (TokenResult, error)
	// RefreshToken discards cached tokens so the next TokenAndSignature fetches new ones.
	RefreshToken(ctx context.Context) error
	// XboxUserID identifies the user; it is reported on responses.
	XboxUserID() string
}

// ErrNoCredentials is returned by StaticIdentity when it holds no token.
var ErrNoCredentials = errors.New("no credentials available")

// StaticIdentity serves fixed credentials. It suits tools and tests where a
// token was obtained out of band. Refresh calls OnRefresh when set, which
// may install a new token through SetToken.
type StaticIdentity struct {
	UserID    string
	UserHash  string
	Signature string
	OnRefresh func(ctx context.Context, id *StaticIdentity) error

	mu    sync.RWMutex
	token string
}

// NewStaticIdentity creates a StaticIdentity holding token.
func NewStaticIdentity(userID, userHash, token string) *StaticIdentity {
	return &StaticIdentity{UserID: userID, UserHash: userHash, token: token}
}

// SetToken replaces the held token.
func (s *StaticIdentity) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// TokenAndSignature implements Identity.
func (s *StaticIdentity) TokenAndSignature(context.Context, string, string, http.Header) (TokenResult, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return TokenResult{}, ErrNoCredentials
	}
	return TokenResult{Token: token, Signature: s.Signature, UserHash: s.UserHash}, nil
}

// RefreshToken implements Identity.
func (s *StaticIdentity) RefreshToken(ctx context.Context) error {
	if s.OnRefresh == nil {
		return nil
	}
	return s.OnRefresh(ctx, s)
}

// XboxUserID implements Identity.
func (s *StaticIdentity) XboxUserID() string {
	return s.UserID
}
