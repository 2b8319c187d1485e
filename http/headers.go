package http

import (
	"context"
	nethttp "net/http"

	"golang.org/x/text/language"

	"github.com/jasonsandlin/xbox-live-api-go/trace"
)

const (
	// UserAgentProduct prefixes the User-Agent of every call.
	UserAgentProduct = "XboxServicesAPIGo"

	headerAcceptLanguage = "Accept-Language"
	headerAccept         = "Accept"
	headerCacheControl   = "Cache-Control"
	headerUserAgent      = "User-Agent"
)

// AcceptLanguage renders "<locale>,<language>", e.g. "en-US,en".
// An unparsable locale falls back to en-US.
func AcceptLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		tag = language.AmericanEnglish
	}
	base, _ := tag.Base()
	return tag.String() + "," + base.String()
}

// UserAgent renders the product token with an optional caller context.
func UserAgent(version, callerContext string) string {
	ua := UserAgentProduct + "/" + version
	if callerContext != "" {
		ua += " " + callerContext
	}
	return ua
}

// defaultHeaders are set on every attempt before the request's own headers.
func defaultHeaders(locale string) nethttp.Header {
	h := make(nethttp.Header, 3)
	h.Set(headerAcceptLanguage, AcceptLanguage(locale))
	h.Set(headerAccept, "*/*")
	h.Set(headerCacheControl, "no-cache")
	return h
}

// attemptHeaders assembles the headers of one attempt: defaults, the
// request's custom headers, contract version, User-Agent, correlation.
func (e *Executor) attemptHeaders(ctx context.Context, req *Request, correlationID string) nethttp.Header {
	h := e.defaults.Clone()
	for name, values := range req.Headers {
		h[nethttp.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if req.ContractVersion != "" {
		h.Set(HeaderContractVersion, req.ContractVersion)
	}
	if h.Get(headerUserAgent) == "" {
		h.Set(headerUserAgent, UserAgent(e.settings.Version, req.CallerContext))
	}
	trace.InjectHeaders(ctx, h, correlationID)
	return h
}
