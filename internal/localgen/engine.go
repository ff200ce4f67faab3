// Package localgen is the deterministic rule-based generation engine. It
// composes emoji sequences from built-in theme, emotion and color
// vocabularies and never returns an error: any syntactically valid request,
// including an empty one, resolves to a pattern with defaults filled in.
package localgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"emojigen/internal/core"
)

// Sequence length per complexity tier when the request does not set a size.
const (
	sizeSimple   = 4
	sizeModerate = 6
	sizeComplex  = 9
	sizeMax      = 16
)

// safetyPool is used when exclusions empty every vocabulary pool. The engine
// must still produce a sequence, so these are returned even if excluded.
var safetyPool = []string{"✨", "⭐", "💫", "🌟"}

// Engine implements core.LocalEngine.
type Engine struct {
	logger *slog.Logger
}

// New creates a local generation engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Generate composes a pattern from the built-in vocabularies. The same
// request always produces the same result: selection offsets derive from the
// request fingerprint, not from a random source.
func (e *Engine) Generate(_ context.Context, req *core.GenerationRequest) (*core.LocalResult, error) {
	if req == nil {
		req = &core.GenerationRequest{}
	}

	theme := strings.ToLower(strings.TrimSpace(req.Theme))
	themed, themeKnown := themeEmojis[theme]
	if !themeKnown {
		theme = defaultTheme
		themed = themeEmojis[defaultTheme]
	}

	complexity := req.Complexity
	if complexity == "" {
		complexity = core.ComplexityModerate
	}

	pool := buildPool(themed, req)
	size := sequenceSize(req.Size, complexity)
	seed := xxhash.Sum64String(req.Fingerprint())

	pattern := core.Pattern{
		Name:       theme + " " + string(complexity),
		Emojis:     compose(pool, req.Include, size, seed),
		Theme:      theme,
		Complexity: complexity,
	}

	alternatives := []core.Pattern{
		{Name: pattern.Name + " alt 1", Emojis: compose(pool, nil, size, seed+1), Theme: theme, Complexity: complexity},
		{Name: pattern.Name + " alt 2", Emojis: compose(pool, nil, size, seed+2), Theme: theme, Complexity: complexity},
	}

	result := &core.LocalResult{
		Pattern:      pattern,
		Confidence:   confidence(themeKnown, req),
		Alternatives: alternatives,
		Rationale:    rationale(theme, themeKnown),
	}

	e.logger.Debug("local generation complete",
		"theme", theme,
		"size", len(pattern.Emojis),
		"confidence", result.Confidence)
	return result, nil
}

// buildPool merges the theme pool with emotion and color accents, then
// applies exclusions. An exhausted pool falls back to the safety set.
func buildPool(themed []string, req *core.GenerationRequest) []string {
	pool := make([]string, 0, len(themed)+8)
	seen := make(map[string]bool)
	excluded := make(map[string]bool, len(req.Exclude))
	for _, e := range req.Exclude {
		excluded[e] = true
	}

	add := func(emojis []string) {
		for _, e := range emojis {
			if !seen[e] && !excluded[e] {
				seen[e] = true
				pool = append(pool, e)
			}
		}
	}

	add(themed)
	if accents, ok := emotionEmojis[strings.ToLower(req.Emotion)]; ok {
		add(accents)
	}
	if accents, ok := colorEmojis[strings.ToLower(req.ColorFamily)]; ok {
		add(accents)
	}

	if len(pool) == 0 {
		return safetyPool
	}
	return pool
}

// sequenceSize resolves the requested size, defaulting by complexity tier
// and clamping out-of-range values.
func sequenceSize(requested int, complexity core.Complexity) int {
	if requested > 0 {
		if requested > sizeMax {
			return sizeMax
		}
		return requested
	}
	switch complexity {
	case core.ComplexitySimple:
		return sizeSimple
	case core.ComplexityComplex:
		return sizeComplex
	default:
		return sizeModerate
	}
}

// compose fills a sequence of the given size: include items first, then pool
// entries starting at a seed-derived offset, wrapping as needed.
func compose(pool, include []string, size int, seed uint64) []string {
	out := make([]string, 0, size)
	seen := make(map[string]bool)
	for _, e := range include {
		if len(out) == size {
			break
		}
		if e != "" && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	offset := int(seed % uint64(len(pool)))
	for i := 0; len(out) < size; i++ {
		e := pool[(offset+i)%len(pool)]
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
			continue
		}
		// Pool smaller than the sequence: allow repeats once every unique
		// entry has been used.
		if i >= len(pool) {
			out = append(out, e)
		}
	}
	return out
}

// confidence scores how well the vocabularies matched the request. Known
// themes score high; a defaulted theme is usable but flagged lower.
func confidence(themeKnown bool, req *core.GenerationRequest) float64 {
	c := 0.65
	if themeKnown {
		c = 0.8
	}
	if _, ok := emotionEmojis[strings.ToLower(req.Emotion)]; ok {
		c += 0.05
	}
	if _, ok := colorEmojis[strings.ToLower(req.ColorFamily)]; ok {
		c += 0.05
	}
	if c > 0.9 {
		c = 0.9
	}
	return c
}

// rationale returns the bilingual explanation attached to every result.
func rationale(theme string, themeKnown bool) string {
	if themeKnown {
		return fmt.Sprintf(
			"Generated locally from the %q theme vocabulary. / ローカル語彙のテーマ「%s」から生成しました。",
			theme, theme)
	}
	return fmt.Sprintf(
		"Theme not recognized; generated locally from the default %q vocabulary. / テーマが認識できなかったため、既定の「%s」語彙からローカル生成しました。",
		theme, theme)
}
