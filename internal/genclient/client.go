// Package genclient provides the base HTTP client for remote generation
// services with:
// - Request marshaling/unmarshaling
// - Retries with exponential backoff
// - Typed error classification (429, 5xx, timeouts)
// - Circuit breaking via sony/gobreaker
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"emojigen/internal/core"
	"emojigen/internal/httpclient"
)

// Config holds configuration for the generation client.
type Config struct {
	// ServiceName identifies the service for error attribution.
	ServiceName string

	// BaseURL is the API base URL.
	BaseURL string

	// Retry configuration.
	MaxRetries     int           // Maximum number of retry attempts (default: 2)
	InitialBackoff time.Duration // Initial backoff duration (default: 200ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 2s)
	BackoffFactor  float64       // Backoff multiplier (default: 2.0)

	// DisableBreaker turns off the circuit breaker (used in tests).
	DisableBreaker bool
}

// DefaultConfig returns default client configuration. Backoffs are kept
// short because the orchestrator bounds the whole attempt by the caller's
// latency budget.
func DefaultConfig(serviceName, baseURL string) Config {
	return Config{
		ServiceName:    serviceName,
		BaseURL:        baseURL,
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
	}
}

// ErrBreakerOpen marks failures caused by an open circuit breaker; they are
// not retried because the breaker would reject the retry too.
var ErrBreakerOpen = errors.New("circuit breaker open")

// HeaderSetter is a function that sets headers on an HTTP request.
type HeaderSetter func(req *http.Request)

// Client is the resilient HTTP client used by remote service adapters.
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
	breaker      *gobreaker.CircuitBreaker
}

// New creates a new client with the given configuration.
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a new client with a custom HTTP client.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	c := &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
	if !config.DisableBreaker {
		c.breaker = newBreaker(config.ServiceName)
	}
	return c
}

// newBreaker creates a circuit breaker tripping on a 60% failure ratio over
// at least 5 requests, re-probing after 10 seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// SetBaseURL updates the base URL.
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// Request represents an HTTP request to be made.
type Request struct {
	Method   string
	Endpoint string
	Body     any // JSON marshaled if not nil
	Headers  map[string]string
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do executes a request with retries and circuit breaking, then unmarshals
// the response body into result.
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewMalformedError(c.config.ServiceName, "failed to unmarshal response: "+err.Error(), err)
		}
	}
	return nil
}

// DoRaw executes a request with retries and circuit breaking, returning the
// raw response. Each attempt passes through the breaker individually so the
// breaker counts real upstream outcomes, not retry batches.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, c.classifyCtxErr(ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := c.attempt(ctx, req)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return nil, err
		}
		return resp, nil
	}

	return nil, lastErr
}

// attempt executes one request through the circuit breaker.
func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.breaker == nil {
		return c.doRequest(ctx, req)
	}

	v, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			ge := core.NewUnavailableError(c.config.ServiceName, "circuit breaker open")
			ge.Err = ErrBreakerOpen
			return nil, ge
		}
		return nil, err
	}
	return v.(*Response), nil
}

// doRequest executes a single HTTP request and classifies failures into the
// service error taxonomy.
func (c *Client) doRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyCtxErr(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewUnavailableError(c.config.ServiceName, "failed to read response: "+err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.NewRateLimitedError(c.config.ServiceName)
	case resp.StatusCode >= 500:
		return nil, core.NewUnavailableError(c.config.ServiceName, "upstream error: "+string(body))
	case resp.StatusCode >= 400:
		return nil, core.NewMalformedError(c.config.ServiceName, "rejected request: "+string(body), nil)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// classifyCtxErr maps deadline errors to the timeout kind and everything
// else to service-unavailable.
func (c *Client) classifyCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewTimeoutError(c.config.ServiceName, err)
	}
	ge := core.NewUnavailableError(c.config.ServiceName, "request failed: "+err.Error())
	ge.Err = err
	return ge
}

// buildRequest creates an HTTP request from a Request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewMalformedError(c.config.ServiceName, "failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, core.NewMalformedError(c.config.ServiceName, "failed to create request", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// calculateBackoff calculates the backoff duration for a given attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	initial := c.config.InitialBackoff
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}
	factor := c.config.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	maxBackoff := c.config.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 2 * time.Second
	}

	backoff := float64(initial) * math.Pow(factor, float64(attempt-1))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// isRetryable reports whether a classified error is worth another attempt.
// Rate-limited and malformed responses are terminal for the current call;
// the orchestrator handles them by moving to the next strategy.
func isRetryable(err error) bool {
	if errors.Is(err, ErrBreakerOpen) {
		return false
	}
	var ge *core.GenerationError
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Kind == core.ErrKindUnavailable
}
