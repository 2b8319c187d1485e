// Package fixtures builds canned transport responses for call engine tests.
package fixtures

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Response builds a response with body and an accurate Content-Length.
// Every call returns a fresh value; responses are single-use.
func Response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// Status builds an empty response with the given status.
func Status(status int) *http.Response {
	return Response(status, "", nil)
}

// JSON builds a response with a JSON content type.
func JSON(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	return Response(status, body, h)
}

// Throttled builds a 429 carrying a Retry-After of the given seconds.
func Throttled(retryAfterSeconds int) *http.Response {
	h := http.Header{}
	h.Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	h.Set("Content-Type", "application/json")
	return Response(http.StatusTooManyRequests, `{"code":429,"description":"Too many requests"}`, h)
}

// Truncated builds a response declaring more bytes than its body holds.
func Truncated(status int, body string, declared int64) *http.Response {
	resp := Response(status, body, nil)
	resp.ContentLength = declared
	return resp
}

// UnknownLength builds a response whose length is not declared.
func UnknownLength(status int, body string) *http.Response {
	resp := Response(status, body, nil)
	resp.ContentLength = -1
	return resp
}

// Func adapts a response builder for mocks that must return a fresh
// response on every call.
func Func(build func() *http.Response) func(*http.Request) *http.Response {
	return func(*http.Request) *http.Response { return build() }
}
