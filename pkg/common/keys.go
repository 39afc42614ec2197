package common

import "strings"

// NormalizeKey turns a free-form name into a stable dedup key: lowercase,
// ASCII letters and digits only, hyphen-delimited, with collapsed and
// trimmed hyphens. The empty string means "cannot resolve" and callers
// must skip or reject the unit of work. The function is pure and must
// stay stable across releases so re-ingesting a document reproduces the
// same keys.
func NormalizeKey(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "null" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	lastHyphen := true
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// NormalizeClaimText is the dedup key for facts and insights: trimmed,
// case-insensitive, inner whitespace collapsed. Deliberately exact-text
// only; paraphrase detection is out of scope.
func NormalizeClaimText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
