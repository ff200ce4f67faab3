package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a strategy or service failure.
type ErrorKind string

const (
	// ErrKindUnavailable indicates an availability probe failed or the
	// service is not registered.
	ErrKindUnavailable ErrorKind = "service_unavailable"
	// ErrKindRateLimited indicates the outbound rate limiter rejected the call.
	ErrKindRateLimited ErrorKind = "rate_limited"
	// ErrKindTimeout indicates a remote call exceeded the latency budget.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindMalformed indicates a response that could not be interpreted
	// into the common pattern shape.
	ErrKindMalformed ErrorKind = "malformed_response"
	// ErrKindCacheMiss is the normal control-flow signal to try the next
	// strategy; it is never surfaced to callers.
	ErrKindCacheMiss ErrorKind = "cache_miss"
	// ErrKindInvalidRequest indicates a request the server could not decode.
	ErrKindInvalidRequest ErrorKind = "invalid_request"
)

// GenerationError is the typed error used across strategies and services.
// Strategy-level failures are caught and logged inside the orchestrator and
// never propagate to the caller.
type GenerationError struct {
	Kind    ErrorKind `json:"kind"`
	Service string    `json:"service,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Service, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the error kind to an HTTP status for the server layer.
func (e *GenerationError) HTTPStatusCode() int {
	switch e.Kind {
	case ErrKindRateLimited:
		return http.StatusTooManyRequests
	case ErrKindTimeout:
		return http.StatusGatewayTimeout
	case ErrKindInvalidRequest:
		return http.StatusBadRequest
	case ErrKindUnavailable, ErrKindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewUnavailableError creates a service-unavailable error.
func NewUnavailableError(service, message string) *GenerationError {
	return &GenerationError{Kind: ErrKindUnavailable, Service: service, Message: message}
}

// NewRateLimitedError creates a rate-limited error.
func NewRateLimitedError(service string) *GenerationError {
	return &GenerationError{Kind: ErrKindRateLimited, Service: service, Message: "outbound rate limit exceeded"}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(service string, err error) *GenerationError {
	return &GenerationError{Kind: ErrKindTimeout, Service: service, Message: "request exceeded latency budget", Err: err}
}

// NewMalformedError creates a malformed-response error.
func NewMalformedError(service, message string, err error) *GenerationError {
	return &GenerationError{Kind: ErrKindMalformed, Service: service, Message: message, Err: err}
}

// NewInvalidRequestError creates an invalid-request error for the server layer.
func NewInvalidRequestError(message string, err error) *GenerationError {
	return &GenerationError{Kind: ErrKindInvalidRequest, Message: message, Err: err}
}

// ErrCacheMiss signals that no usable cache entry exists for a key.
var ErrCacheMiss = &GenerationError{Kind: ErrKindCacheMiss, Message: "no cached result"}

// ErrorServiceName returns the service a failure is attributable to, or empty
// if the error carries no attribution.
func ErrorServiceName(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Service
	}
	return ""
}
