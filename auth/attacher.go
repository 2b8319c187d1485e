package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/jasonsandlin/xbox-live-api-go/logger"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderSignature     = "Signature"
)

// Format selects how the Authorization header is built.
type Format int

const (
	// FormatXBL3 sends "XBL3.0 x=<userhash>;<token>".
	FormatXBL3 Format = iota
	// FormatBareToken sends the token unchanged.
	FormatBareToken
)

// ParseFormat maps the configuration names "xbl3" and "bare" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xbl3":
		return FormatXBL3, nil
	case "bare":
		return FormatBareToken, nil
	default:
		return FormatXBL3, fmt.Errorf("unknown authorization header format %q", s)
	}
}

// Attacher obtains credentials from an Identity and writes them onto request headers.
type Attacher struct {
	format  Format
	log     logger.Logger
	refresh singleflight.Group
}

// NewAttacher creates an Attacher. A nil log discards output.
func NewAttacher(format Format, log logger.Logger) *Attacher {
	if log == nil {
		log = logger.Nop()
	}
	return &Attacher{format: format, log: log}
}

// Attach fetches credentials for the request. Failures are returned wrapped
// and must end the call without sending it.
func (a *Attacher) Attach(ctx context.Context, id Identity, method, url string, headers http.Header) (TokenResult, error) {
	tr, err := id.TokenAndSignature(ctx, method, url, headers)
	if err != nil {
		return TokenResult{}, fmt.Errorf("get token and signature: %w", err)
	}
	return tr, nil
}

// Apply writes the Authorization and Signature headers.
func (a *Attacher) Apply(headers http.Header, tr TokenResult) {
	headers.Set(HeaderAuthorization, a.AuthorizationValue(tr))
	if tr.Signature != "" {
		headers.Set(HeaderSignature, tr.Signature)
	} else {
		headers.Del(HeaderSignature)
	}
}

// AuthorizationValue formats the Authorization header value.
func (a *Attacher) AuthorizationValue(tr TokenResult) string {
	if a.format == FormatBareToken {
		return tr.Token
	}
	return fmt.Sprintf("XBL3.0 x=%s;%s", tr.UserHash, tr.Token)
}

// Refresh asks the identity for new tokens. Concurrent refreshes of the same
// user share one call to RefreshToken.
func (a *Attacher) Refresh(ctx context.Context, id Identity) error {
	key := id.XboxUserID()
	if key == "" {
		key = fmt.Sprintf("%p", id)
	}

	_, err, shared := a.refresh.Do(key, func() (any, error) {
		return nil, id.RefreshToken(ctx)
	})

	a.log.Debug().
		Str("xbox_user_id", id.XboxUserID()).
		Bool("shared", shared).
		Bool("ok", err == nil).
		Msg("Token refresh completed")

	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	return nil
}
