// Package core defines the shared types and interfaces for the pattern
// generation service.
package core

import "time"

// Complexity is the requested complexity tier of a pattern.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Preference selects how the orchestrator weighs remote versus local
// generation strategies.
type Preference string

const (
	PreferAPIFirst   Preference = "api-first"
	PreferLocalFirst Preference = "local-first"
	PreferBalanced   Preference = "balanced"
)

// Source identifies which strategy produced a result.
type Source string

const (
	SourceCache Source = "cache"
	SourceLocal Source = "local"
	SourceAPI   Source = "api"
)

// Default context values applied by GenerationContext.WithDefaults.
const (
	DefaultMaxLatency       = 5000 * time.Millisecond
	DefaultQualityThreshold = 0.7

	// QualityFloor is the minimum quality guaranteed on every resolved
	// result, regardless of how many strategies failed.
	QualityFloor = 0.6
)

// Pattern is a generated emoji sequence.
type Pattern struct {
	Name       string     `json:"name,omitempty"`
	Emojis     []string   `json:"emojis"`
	Theme      string     `json:"theme,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
}

// GenerationRequest holds the semantic parameters of the desired pattern.
// All fields are optional; the local engine supplies defaults for an
// entirely empty request. Treated as immutable once handed to the
// orchestrator.
type GenerationRequest struct {
	Theme       string     `json:"theme,omitempty"`
	Emotion     string     `json:"emotion,omitempty"`
	ColorFamily string     `json:"color_family,omitempty"`
	Complexity  Complexity `json:"complexity,omitempty"`
	Language    string     `json:"language,omitempty"`
	SkillLevel  string     `json:"skill_level,omitempty"`
	Size        int        `json:"size,omitempty"`
	Include     []string   `json:"include,omitempty"`
	Exclude     []string   `json:"exclude,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
}

// WithComplexity returns a shallow copy of the request with the complexity
// tier replaced. This avoids mutating the caller's request object.
func (r *GenerationRequest) WithComplexity(c Complexity) *GenerationRequest {
	cp := *r
	cp.Complexity = c
	return &cp
}

// GenerationContext is the per-call policy supplied alongside a request.
// It is created fresh for every call and never persisted.
type GenerationContext struct {
	Offline          bool          `json:"offline,omitempty"`
	Preference       Preference    `json:"preference,omitempty"`
	MaxLatency       time.Duration `json:"max_latency,omitempty"`
	QualityThreshold float64       `json:"quality_threshold,omitempty"`
	AllowStaleCache  *bool         `json:"allow_stale_cache,omitempty"`
	NetworkQuality   string        `json:"network_quality,omitempty"`
}

// WithDefaults returns a copy of the context with unset fields filled with
// the documented defaults: balanced preference, 5s max latency, 0.7 quality
// threshold, stale cache entries tolerated.
func (c GenerationContext) WithDefaults() GenerationContext {
	if c.Preference == "" {
		c.Preference = PreferBalanced
	}
	if c.MaxLatency <= 0 {
		c.MaxLatency = DefaultMaxLatency
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = DefaultQualityThreshold
	}
	if c.AllowStaleCache == nil {
		t := true
		c.AllowStaleCache = &t
	}
	return c
}

// StaleOK reports whether the caller tolerates expired cache entries.
func (c GenerationContext) StaleOK() bool {
	return c.AllowStaleCache != nil && *c.AllowStaleCache
}

// PatternCandidate is a single named candidate in a remote service response.
type PatternCandidate struct {
	Name       string   `json:"name"`
	Emojis     []string `json:"emojis"`
	Confidence float64  `json:"confidence"`
}

// ServiceResponse is the multi-candidate response returned by a remote
// generation service. The orchestrator uses the first candidate as the
// primary result and the rest as alternatives.
type ServiceResponse struct {
	Candidates []PatternCandidate `json:"candidates"`
}

// LocalResult is the output of the local generation engine.
type LocalResult struct {
	Pattern      Pattern   `json:"pattern"`
	Confidence   float64   `json:"confidence"`
	Alternatives []Pattern `json:"alternatives,omitempty"`
	Rationale    string    `json:"rationale"`
}

// FallbackResult is the payload returned to the caller for every generate
// call. Quality and Rationale communicate degraded confidence instead of
// errors, so the caller can decide whether to warn the user.
type FallbackResult struct {
	Pattern      Pattern       `json:"pattern"`
	Source       Source        `json:"source"`
	Quality      float64       `json:"quality"`
	ResponseTime time.Duration `json:"response_time"`
	Cost         float64       `json:"cost"`
	Rationale    string        `json:"rationale"`
	Alternatives []Pattern     `json:"alternatives,omitempty"`
}

// HealthRecord is the rolling health assessment of a single service.
// One record per registered service, overwritten by the periodic probe and
// nudged reactively on live-call failures.
type HealthRecord struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	ErrorRate float64       `json:"error_rate"`
	Quality   float64       `json:"quality"`
	LastError string        `json:"last_error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}
