package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
	}{
		{"plain", "Sunset Drive", "Sunset Drive"},
		{"strips path chars", `a\b/c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"collapses whitespace", "  too \t many\n spaces  ", "too many spaces"},
		{"empty falls back", "", "audio"},
		{"only unsafe falls back", `\/:*?"<>|`, "audio"},
		{"khmer preserved", "បទចម្រៀង ពិរោះ", "បទចម្រៀង ពិរោះ"},
		{"chinese preserved", "周杰倫 七里香", "周杰倫 七里香"},
		{"mixed script", "夜に駆ける / YOASOBI", "夜に駆ける YOASOBI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.in))
		})
	}
}

func TestNameNeverContainsUnsafeChars(t *testing.T) {
	inputs := []string{
		`AC/DC: Back In Black?`,
		`"quoted" <tagged> |piped|`,
		strings.Repeat(`x\`, 200),
		"ひらがな*カタカナ",
	}
	for _, in := range inputs {
		got := Name(in)
		assert.False(t, strings.ContainsAny(got, `\/:*?"<>|`), "input %q -> %q", in, got)
	}
}

func TestNameTruncation(t *testing.T) {
	long := strings.Repeat("あ", 300)
	got := Name(long)
	assert.Equal(t, MaxNameRunes, len([]rune(got)))
	assert.True(t, strings.HasPrefix(long, got))
}

func TestDisplayTruncation(t *testing.T) {
	long := strings.Repeat("b", 300)
	got := Display(long)
	assert.Equal(t, MaxDisplayRunes, len([]rune(got)))
}
