// Package sanitize maps arbitrary track titles to names that are safe on
// common filesystems. The filter is a denylist of structurally unsafe
// characters, not an allowlist of scripts: Khmer, CJK and other non-Latin
// titles pass through untouched.
package sanitize

import "strings"

const (
	// MaxNameRunes bounds the download-time file name.
	MaxNameRunes = 80
	// MaxDisplayRunes bounds presentation titles.
	MaxDisplayRunes = 100

	fallback = "audio"
)

// Name returns a filesystem-safe file name derived from title.
// Never fails; an empty result falls back to "audio".
func Name(title string) string {
	return clean(title, MaxNameRunes)
}

// Display returns a bounded presentation title, cleaned the same way as Name
// but with the longer cap.
func Display(title string) string {
	return clean(title, MaxDisplayRunes)
}

func clean(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			// path-hostile on at least one supported filesystem
		default:
			b.WriteRune(r)
		}
	}
	// Collapse whitespace runs to a single space and trim the ends.
	out := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(out); len(runes) > max {
		out = strings.TrimSpace(string(runes[:max]))
	}
	if out == "" {
		return fallback
	}
	return out
}
