// Package remoteapi implements core.Service for an HTTP-backed generative
// pattern service. The wire protocol is the common multi-candidate shape:
//
//	POST {base}/v1/patterns/generate  -> {"candidates":[{"name","emojis","confidence"},...]}
//	GET  {base}/health                -> 200 when serving
package remoteapi

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"emojigen/internal/core"
	"emojigen/internal/genclient"
)

// Config describes one remote generation service instance.
type Config struct {
	// Name uniquely identifies the service for health and rate accounting.
	Name string `yaml:"name"`

	// BaseURL is the service's API root.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates outbound calls; an empty key makes the service
	// unavailable rather than misconfigured.
	APIKey string `yaml:"api_key"`

	// Priority is the relative selection priority (higher wins).
	Priority int `yaml:"priority"`

	// CostPerCall is the estimated cost of one generate call.
	CostPerCall float64 `yaml:"cost_per_call"`

	// MaxCallsPerMinute bounds outbound calls; 0 means unlimited.
	MaxCallsPerMinute int `yaml:"max_calls_per_minute"`
}

// Service is an HTTP-backed core.Service.
type Service struct {
	cfg    Config
	client *genclient.Client
}

// New creates a remote service adapter from its configuration.
func New(cfg Config) *Service {
	s := &Service{cfg: cfg}
	s.client = genclient.New(genclient.DefaultConfig(cfg.Name, cfg.BaseURL), s.setHeaders)
	return s
}

// NewWithHTTPClient creates an adapter with a custom HTTP client and the
// circuit breaker disabled. Used by tests.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) *Service {
	s := &Service{cfg: cfg}
	clientCfg := genclient.DefaultConfig(cfg.Name, cfg.BaseURL)
	clientCfg.DisableBreaker = true
	s.client = genclient.NewWithHTTPClient(httpClient, clientCfg, s.setHeaders)
	return s
}

func (s *Service) Name() string           { return s.cfg.Name }
func (s *Service) Priority() int          { return s.cfg.Priority }
func (s *Service) CostPerCall() float64   { return s.cfg.CostPerCall }
func (s *Service) MaxCallsPerMinute() int { return s.cfg.MaxCallsPerMinute }

// IsAvailable is a cheap local probe: the service must be configured with a
// key and an endpoint. Reachability is the health monitor's job.
func (s *Service) IsAvailable(_ context.Context) bool {
	return s.cfg.APIKey != "" && s.cfg.BaseURL != ""
}

// setHeaders sets the required headers for outbound requests.
func (s *Service) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
}

// Generate executes a generation request and parses the multi-candidate
// response. A response without at least one candidate carrying emojis is a
// malformed-response failure.
func (s *Service) Generate(ctx context.Context, req *core.GenerationRequest) (*core.ServiceResponse, error) {
	resp, err := s.client.DoRaw(ctx, genclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/v1/patterns/generate",
		Body:     req,
	})
	if err != nil {
		return nil, err
	}

	body := string(resp.Body)
	if !gjson.Valid(body) {
		return nil, core.NewMalformedError(s.cfg.Name, "response is not valid JSON", nil)
	}

	raw := gjson.Get(body, "candidates")
	if !raw.IsArray() {
		return nil, core.NewMalformedError(s.cfg.Name, "response has no candidates array", nil)
	}

	out := &core.ServiceResponse{}
	for _, c := range raw.Array() {
		var emojis []string
		for _, e := range c.Get("emojis").Array() {
			if e.String() != "" {
				emojis = append(emojis, e.String())
			}
		}
		if len(emojis) == 0 {
			continue
		}
		out.Candidates = append(out.Candidates, core.PatternCandidate{
			Name:       c.Get("name").String(),
			Emojis:     emojis,
			Confidence: c.Get("confidence").Float(),
		})
	}

	if len(out.Candidates) == 0 {
		return nil, core.NewMalformedError(s.cfg.Name, "no usable candidates in response", nil)
	}
	return out, nil
}

// HealthCheck probes the service's health endpoint.
func (s *Service) HealthCheck(ctx context.Context) error {
	_, err := s.client.DoRaw(ctx, genclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/health",
	})
	return err
}
