package http

import (
	"errors"
	"io"
	"mime"
	nethttp "net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/jasonsandlin/xbox-live-api-go/retry"
)

// MaxBodySize bounds the buffer allocated from a declared Content-Length.
const MaxBodySize = 64 << 20

const (
	headerRetryAfter = "Retry-After"
	headerETag       = "ETag"
)

// Response is the result of one attempt. The executor returns the response
// of the last attempt it made.
type Response struct {
	// StatusCode is 0 when no complete response was obtained, which is
	// always the case for a network failure.
	StatusCode       int
	IsNetworkFailure bool
	Body             []byte
	// BodyString holds the decoded body when the request asked for a string
	// body and the body is non-empty.
	BodyString string
	Headers    nethttp.Header
	// RetryAfter is 0 when the response carried no usable Retry-After.
	RetryAfter           time.Duration
	ETag                 string
	RequestStartTime     time.Time
	ResponseReceivedTime time.Time

	URL        string
	Method     string
	APIName    string
	XboxUserID string
	// Attempt is the 1-based attempt number that produced the response.
	Attempt int
	// Err is the transport error of a network failure.
	Err error
}

// Elapsed returns the time spent in the attempt.
func (r *Response) Elapsed() time.Duration {
	return r.ResponseReceivedTime.Sub(r.RequestStartTime)
}

// errBodyRead marks a body that could not be read in full.
var errBodyRead = errors.New("read response body")

// newResponse converts the transport result of one attempt. A body shorter
// than its declared length yields a BodySizeMismatch error alongside the
// partial response; any other read failure becomes a network failure.
func newResponse(req *Request, httpResp *nethttp.Response, transportErr error, started, received time.Time) (*Response, error) {
	resp := &Response{
		RequestStartTime:     started,
		ResponseReceivedTime: received,
		URL:                  req.URL,
		Method:               req.Method,
		APIName:              req.apiName(),
		Headers:              make(nethttp.Header),
	}

	if transportErr != nil || httpResp == nil {
		if transportErr == nil {
			transportErr = errors.New("no response from transport")
		}
		if httpResp != nil && httpResp.Body != nil {
			_ = httpResp.Body.Close()
		}
		resp.IsNetworkFailure = true
		resp.Err = transportErr
		return resp, nil
	}
	defer func() {
		if httpResp.Body != nil {
			_ = httpResp.Body.Close()
		}
	}()

	resp.StatusCode = httpResp.StatusCode
	if httpResp.Header != nil {
		resp.Headers = httpResp.Header
	}
	resp.ETag = resp.Headers.Get(headerETag)
	if d, ok := retry.ParseRetryAfter(resp.Headers.Get(headerRetryAfter), received); ok {
		resp.RetryAfter = d
	}

	body, err := readBody(httpResp.Body, httpResp.ContentLength)
	resp.Body = body
	if err != nil {
		var sizeErr *bodySizeError
		if errors.As(err, &sizeErr) {
			return resp, err
		}
		// A response cut off mid-body counts as no response at all.
		resp.StatusCode = 0
		resp.RetryAfter = 0
		resp.IsNetworkFailure = true
		resp.Err = err
		return resp, nil
	}

	if req.BodyType == BodyTypeString && len(body) > 0 {
		resp.BodyString = decodeBody(body, resp.Headers.Get(headerContentType))
	}
	return resp, nil
}

// readBody reads exactly contentLength bytes, or to EOF when the length is
// unknown (-1).
func readBody(body io.Reader, contentLength int64) ([]byte, error) {
	if body == nil || contentLength == 0 {
		return nil, nil
	}
	if contentLength < 0 {
		b, err := io.ReadAll(io.LimitReader(body, MaxBodySize+1))
		if err != nil {
			return b, errors.Join(errBodyRead, err)
		}
		if len(b) > MaxBodySize {
			return b[:MaxBodySize], NewBodySizeMismatchError(contentLength, len(b), errors.New("body exceeds maximum size"))
		}
		return b, nil
	}
	if contentLength > MaxBodySize {
		return nil, NewBodySizeMismatchError(contentLength, 0, errors.New("declared length exceeds maximum size"))
	}

	buf := make([]byte, contentLength)
	n, err := io.ReadFull(body, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return buf[:n], NewBodySizeMismatchError(contentLength, n, err)
	default:
		return buf[:n], errors.Join(errBodyRead, err)
	}
}

// decodeBody converts body to a string using the charset of contentType.
// Unknown charsets are treated as UTF-8.
func decodeBody(body []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
