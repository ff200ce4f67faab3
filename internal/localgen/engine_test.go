package localgen

import (
	"context"
	"strings"
	"testing"

	"emojigen/internal/core"
)

func TestGenerate(t *testing.T) {
	eng := New(nil)
	ctx := context.Background()

	t.Run("Deterministic", func(t *testing.T) {
		req := &core.GenerationRequest{Theme: "ocean", Emotion: "calm", Size: 5}
		a, err := eng.Generate(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := eng.Generate(ctx, req)
		if strings.Join(a.Pattern.Emojis, "") != strings.Join(b.Pattern.Emojis, "") {
			t.Errorf("identical requests produced different sequences: %v vs %v",
				a.Pattern.Emojis, b.Pattern.Emojis)
		}
		if a.Confidence != b.Confidence {
			t.Errorf("confidence not stable: %v vs %v", a.Confidence, b.Confidence)
		}
	})

	t.Run("EmptyRequestGetsDefaults", func(t *testing.T) {
		res, err := eng.Generate(ctx, &core.GenerationRequest{})
		if err != nil {
			t.Fatalf("empty request must not error: %v", err)
		}
		if res.Pattern.Theme != defaultTheme {
			t.Errorf("expected default theme, got %q", res.Pattern.Theme)
		}
		if res.Pattern.Complexity != core.ComplexityModerate {
			t.Errorf("expected moderate complexity, got %q", res.Pattern.Complexity)
		}
		if len(res.Pattern.Emojis) != sizeModerate {
			t.Errorf("expected %d emojis, got %d", sizeModerate, len(res.Pattern.Emojis))
		}
		if res.Rationale == "" || !strings.Contains(res.Rationale, "/") {
			t.Errorf("rationale must be bilingual: %q", res.Rationale)
		}
	})

	t.Run("NilRequest", func(t *testing.T) {
		res, err := eng.Generate(ctx, nil)
		if err != nil {
			t.Fatalf("nil request must not error: %v", err)
		}
		if len(res.Pattern.Emojis) == 0 {
			t.Error("nil request must still produce a sequence")
		}
	})

	t.Run("SizeByComplexity", func(t *testing.T) {
		for complexity, want := range map[core.Complexity]int{
			core.ComplexitySimple:   sizeSimple,
			core.ComplexityModerate: sizeModerate,
			core.ComplexityComplex:  sizeComplex,
		} {
			res, _ := eng.Generate(ctx, &core.GenerationRequest{Theme: "space", Complexity: complexity})
			if len(res.Pattern.Emojis) != want {
				t.Errorf("%s: expected %d emojis, got %d", complexity, want, len(res.Pattern.Emojis))
			}
		}
	})

	t.Run("ExplicitSizeClamped", func(t *testing.T) {
		res, _ := eng.Generate(ctx, &core.GenerationRequest{Theme: "food", Size: 100})
		if len(res.Pattern.Emojis) != sizeMax {
			t.Errorf("oversized request not clamped: got %d", len(res.Pattern.Emojis))
		}
	})

	t.Run("IncludeHonored", func(t *testing.T) {
		res, _ := eng.Generate(ctx, &core.GenerationRequest{
			Theme:   "nature",
			Include: []string{"🎯", "🔔"},
			Size:    6,
		})
		if res.Pattern.Emojis[0] != "🎯" || res.Pattern.Emojis[1] != "🔔" {
			t.Errorf("included emojis must lead the sequence: %v", res.Pattern.Emojis)
		}
	})

	t.Run("ExcludeHonored", func(t *testing.T) {
		excluded := "🌊"
		res, _ := eng.Generate(ctx, &core.GenerationRequest{
			Theme:   "ocean",
			Exclude: []string{excluded},
			Size:    8,
		})
		for _, e := range res.Pattern.Emojis {
			if e == excluded {
				t.Errorf("excluded emoji %q appeared in %v", excluded, res.Pattern.Emojis)
			}
		}
	})

	t.Run("ExhaustedPoolFallsBackToSafetySet", func(t *testing.T) {
		res, err := eng.Generate(ctx, &core.GenerationRequest{
			Theme:   "music",
			Exclude: themeEmojis["music"],
			Size:    4,
		})
		if err != nil {
			t.Fatalf("exhausted pool must not error: %v", err)
		}
		if len(res.Pattern.Emojis) != 4 {
			t.Errorf("safety fallback did not fill the sequence: %v", res.Pattern.Emojis)
		}
	})

	t.Run("UnknownThemeLowersConfidence", func(t *testing.T) {
		known, _ := eng.Generate(ctx, &core.GenerationRequest{Theme: "ocean"})
		unknown, _ := eng.Generate(ctx, &core.GenerationRequest{Theme: "xyzzy"})
		if unknown.Confidence >= known.Confidence {
			t.Errorf("unknown theme should score lower: %v vs %v",
				unknown.Confidence, known.Confidence)
		}
		if unknown.Pattern.Theme != defaultTheme {
			t.Errorf("unknown theme must fall back to default, got %q", unknown.Pattern.Theme)
		}
	})

	t.Run("TwoAlternatives", func(t *testing.T) {
		res, _ := eng.Generate(ctx, &core.GenerationRequest{Theme: "travel"})
		if len(res.Alternatives) != 2 {
			t.Fatalf("expected 2 alternatives, got %d", len(res.Alternatives))
		}
		primary := strings.Join(res.Pattern.Emojis, "")
		for i, alt := range res.Alternatives {
			if strings.Join(alt.Emojis, "") == primary {
				t.Errorf("alternative %d identical to the primary pattern", i)
			}
		}
	})
}
