package store

import (
	"strings"
	"unicode"
)

// SanitizeLabel strips everything but letters, digits and underscores from
// an entity type or relationship type before it is used in a query. The
// fallback is returned when nothing survives.
func SanitizeLabel(label, fallback string) string {
	var b strings.Builder
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return fallback
	}
	return out
}

// DedupeStrings returns the input with duplicates removed, keeping first
// occurrence order.
func DedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
