package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a canonical, deterministic key for the request.
// It is used both as the cache key and as the deduplication key, so two
// requests that differ only in field ordering of the emoji sets produce the
// same fingerprint. Zero-valued fields are omitted from the serialization so
// adding optional fields later does not invalidate existing keys.
func (r *GenerationRequest) Fingerprint() string {
	var b strings.Builder

	writeField(&b, "theme", r.Theme)
	writeField(&b, "emotion", r.Emotion)
	writeField(&b, "color", r.ColorFamily)
	writeField(&b, "complexity", string(r.Complexity))
	writeField(&b, "lang", r.Language)
	writeField(&b, "skill", r.SkillLevel)
	if r.Size != 0 {
		fmt.Fprintf(&b, "size=%d;", r.Size)
	}
	writeSet(&b, "include", r.Include)
	writeSet(&b, "exclude", r.Exclude)
	writeField(&b, "prompt", r.Prompt)

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte(';')
}

// writeSet serializes an emoji set order-insensitively. The input slice is
// not mutated.
func writeSet(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte(';')
}
