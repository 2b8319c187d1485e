package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/jasonsandlin/xbox-live-api-go/validation"
)

const (
	// DefaultContentType is sent with request bodies unless overridden.
	DefaultContentType = "application/json; charset=utf-8"

	HeaderContractVersion = "x-xbl-contract-version"
	HeaderRange           = "Range"
	headerContentLength   = "Content-Length"
	headerContentType     = "Content-Type"
)

// BodyType selects how the response body is exposed.
type BodyType int

const (
	// BodyTypeString decodes the body into Response.BodyString.
	BodyTypeString BodyType = iota
	// BodyTypeBytes leaves the body in Response.Body only.
	BodyTypeBytes
)

// Request describes one logical service call. The executor rebuilds the wire
// request from these fields on every attempt.
type Request struct {
	Method  string `validate:"required,httpmethod"`
	URL     string `validate:"required,url"`
	Headers nethttp.Header
	Body    []byte
	// ContentType applies only when Body is non-empty.
	ContentType     string
	ContractVersion string
	// RetryAllowed disables every retry except the one-time 401 re-auth.
	RetryAllowed bool
	BodyType     BodyType
	// APIName keys throttle state; defaults to the URL host.
	APIName string
	// CallerContext is appended to the User-Agent.
	CallerContext string
}

// NewRequest creates a retryable request for server + pathQuery.
func NewRequest(method, server, pathQuery string) *Request {
	return &Request{
		Method:       method,
		URL:          server + pathQuery,
		Headers:      make(nethttp.Header),
		ContentType:  DefaultContentType,
		RetryAllowed: true,
		BodyType:     BodyTypeString,
	}
}

// SetCustomHeader sets a header sent on every attempt.
func (r *Request) SetCustomHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(nethttp.Header)
	}
	r.Headers.Set(name, value)
}

// SetRange requests the byte range [start, end]. A negative end asks for
// everything from start.
func (r *Request) SetRange(start, end int64) {
	if end < 0 {
		r.SetCustomHeader(HeaderRange, fmt.Sprintf("bytes=%d-", start))
		return
	}
	r.SetCustomHeader(HeaderRange, fmt.Sprintf("bytes=%d-%d", start, end))
}

// QueryFromParams builds "?k1=v1&k2=v2" with keys in sorted order.
// It returns an empty string for no parameters.
func QueryFromParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[k]))
	}
	return sb.String()
}

// apiName returns the throttle key for the request.
func (r *Request) apiName() string {
	if r.APIName != "" {
		return r.APIName
	}
	if u, err := url.Parse(r.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return r.URL
}

func validateRequest(v *validation.Validator, r *Request) error {
	if r == nil {
		return NewValidationError("request is required", "")
	}
	err := v.Struct(r)
	if err == nil {
		return nil
	}
	var ve *validation.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		fe := ve.Errors[0]
		return NewValidationError(strings.TrimPrefix(fe.Message, fe.Field+" "), strings.ToLower(fe.Field))
	}
	return NewValidationError(err.Error(), "")
}

// build creates the wire request for one attempt. headers is owned by the
// returned request.
func (r *Request) build(ctx context.Context, headers nethttp.Header) (*nethttp.Request, error) {
	var body *bytes.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	var req *nethttp.Request
	var err error
	if body != nil {
		req, err = nethttp.NewRequestWithContext(ctx, r.Method, r.URL, body)
	} else {
		req, err = nethttp.NewRequestWithContext(ctx, r.Method, r.URL, nethttp.NoBody)
	}
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("cannot build request: %v", err), "url")
	}

	headers.Del(headerContentLength)
	if body != nil {
		ct := r.ContentType
		if ct == "" {
			ct = DefaultContentType
		}
		headers.Set(headerContentType, ct)
	} else {
		headers.Del(headerContentType)
	}
	req.Header = headers
	return req, nil
}
