package http

import (
	"errors"
	"fmt"
)

// CallError represents the failure kinds of a service call
type CallError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of call error
type ErrorType string

const (
	AuthError              ErrorType = "auth"
	NetworkError           ErrorType = "network"
	HTTPError              ErrorType = "http"
	ThrottledFastFailError ErrorType = "throttled_fast_fail"
	BodySizeMismatchError  ErrorType = "body_size_mismatch"
	ValidationError        ErrorType = "validation"
	ThrottledDevSandbox    ErrorType = "throttled_dev_sandbox"
)

// ErrThrottledFastFail matches every fast-failed call with errors.Is.
var ErrThrottledFastFail = errors.New("api is throttled")

// authError is returned when credentials could not be attached.
type authError struct {
	wrapped error
}

func (e *authError) Error() string {
	return fmt.Sprintf("auth error: %v", e.wrapped)
}

func (e *authError) Type() ErrorType {
	return AuthError
}

func (e *authError) Unwrap() error {
	return e.wrapped
}

// networkError represents transport failures and cancellations
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// httpError represents a terminal non-2xx status
type httpError struct {
	message    string
	statusCode int
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType {
	return HTTPError
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

func (e *httpError) Body() []byte {
	return e.body
}

// fastFailError is returned without sending while an API is throttled.
// It wraps the failure recorded by the call that observed the throttling.
type fastFailError struct {
	api  string
	last error
}

func (e *fastFailError) Error() string {
	if e.last != nil {
		return fmt.Sprintf("throttled: %s: %v", e.api, e.last)
	}
	return fmt.Sprintf("throttled: %s", e.api)
}

func (e *fastFailError) Type() ErrorType {
	return ThrottledFastFailError
}

func (e *fastFailError) Unwrap() []error {
	if e.last == nil {
		return []error{ErrThrottledFastFail}
	}
	return []error{ErrThrottledFastFail, e.last}
}

type bodySizeError struct {
	declared int64
	read     int
	wrapped  error
}

func (e *bodySizeError) Error() string {
	return fmt.Sprintf("body size mismatch: declared %d bytes, read %d", e.declared, e.read)
}

func (e *bodySizeError) Type() ErrorType {
	return BodySizeMismatchError
}

func (e *bodySizeError) Unwrap() error {
	return e.wrapped
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// devSandboxThrottleError flags a 429 received while developing against a
// non-retail sandbox, where throttling usually points at a calling pattern bug.
type devSandboxThrottleError struct {
	api     string
	sandbox string
}

func (e *devSandboxThrottleError) Error() string {
	return fmt.Sprintf("throttled in dev sandbox %s: %s returned 429; disable with http.disablethrottleasserts", e.sandbox, e.api)
}

func (e *devSandboxThrottleError) Type() ErrorType {
	return ThrottledDevSandbox
}

func (e *devSandboxThrottleError) StatusCode() int {
	return 429
}

// NewAuthError creates a new auth error
func NewAuthError(wrapped error) CallError {
	return &authError{wrapped: wrapped}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) CallError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(message string, statusCode int, body []byte) CallError {
	return &httpError{
		message:    message,
		statusCode: statusCode,
		body:       body,
	}
}

// NewThrottledFastFailError creates a fast-fail error for api
func NewThrottledFastFailError(api string, last error) CallError {
	return &fastFailError{api: api, last: last}
}

// NewBodySizeMismatchError creates a body size mismatch error
func NewBodySizeMismatchError(declared int64, read int, wrapped error) CallError {
	return &bodySizeError{declared: declared, read: read, wrapped: wrapped}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) CallError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// NewThrottledDevSandboxError creates the dev sandbox throttling error
func NewThrottledDevSandboxError(api, sandbox string) CallError {
	return &devSandboxThrottleError{api: api, sandbox: sandbox}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var callErr CallError
	if errors.As(err, &callErr) {
		return callErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
