package core

import "testing"

func TestFingerprint(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		req := &GenerationRequest{Theme: "ocean", Size: 5, Include: []string{"🌊", "🐚"}}
		if req.Fingerprint() != req.Fingerprint() {
			t.Fatal("fingerprint is not stable across calls")
		}
	})

	t.Run("SetOrderInsensitive", func(t *testing.T) {
		a := &GenerationRequest{Include: []string{"🌊", "🐚", "🐬"}}
		b := &GenerationRequest{Include: []string{"🐬", "🌊", "🐚"}}
		if a.Fingerprint() != b.Fingerprint() {
			t.Errorf("set ordering changed the fingerprint: %s vs %s", a.Fingerprint(), b.Fingerprint())
		}
	})

	t.Run("DistinctRequestsDiffer", func(t *testing.T) {
		a := &GenerationRequest{Theme: "ocean"}
		b := &GenerationRequest{Theme: "forest"}
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("different themes produced the same fingerprint")
		}
	})

	t.Run("EmptyRequest", func(t *testing.T) {
		req := &GenerationRequest{}
		if req.Fingerprint() == "" {
			t.Error("empty request must still produce a fingerprint")
		}
	})

	t.Run("DoesNotMutateSets", func(t *testing.T) {
		req := &GenerationRequest{Include: []string{"🐬", "🌊"}}
		_ = req.Fingerprint()
		if req.Include[0] != "🐬" {
			t.Error("fingerprint sorted the caller's slice in place")
		}
	})
}

func TestGenerationContextWithDefaults(t *testing.T) {
	t.Run("FillsAllDefaults", func(t *testing.T) {
		ctx := GenerationContext{}.WithDefaults()
		if ctx.Preference != PreferBalanced {
			t.Errorf("expected balanced preference, got %q", ctx.Preference)
		}
		if ctx.MaxLatency != DefaultMaxLatency {
			t.Errorf("expected %v max latency, got %v", DefaultMaxLatency, ctx.MaxLatency)
		}
		if ctx.QualityThreshold != DefaultQualityThreshold {
			t.Errorf("expected %v threshold, got %v", DefaultQualityThreshold, ctx.QualityThreshold)
		}
		if !ctx.StaleOK() {
			t.Error("stale cache should be tolerated by default")
		}
	})

	t.Run("KeepsExplicitValues", func(t *testing.T) {
		f := false
		ctx := GenerationContext{
			Preference:       PreferAPIFirst,
			QualityThreshold: 0.9,
			AllowStaleCache:  &f,
		}.WithDefaults()
		if ctx.Preference != PreferAPIFirst {
			t.Errorf("preference was overwritten: %q", ctx.Preference)
		}
		if ctx.QualityThreshold != 0.9 {
			t.Errorf("threshold was overwritten: %v", ctx.QualityThreshold)
		}
		if ctx.StaleOK() {
			t.Error("explicit stale refusal was overwritten")
		}
	})
}
