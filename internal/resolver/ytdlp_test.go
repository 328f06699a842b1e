package resolver

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchOutput(t *testing.T) {
	data := []byte(`
{"id":"abc123","title":"First Song","uploader":"Artist A","duration":215.0,"age_limit":0}
{"id":"","title":"No ID","uploader":"Nobody","duration":100}
{"id":"xyz789","title":"Restricted","uploader":"Artist B","duration":180,"age_limit":18}
{"id":"def456","title":"","uploader":"Artist C","duration":61.7}
`)
	got, err := parseSearchOutput(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "abc123", got[0].ID)
	assert.Equal(t, "First Song", got[0].Title)
	assert.Equal(t, "Artist A", got[0].Uploader)
	assert.Equal(t, 215, got[0].Duration)
	assert.Equal(t, "https://youtu.be/abc123", got[0].URL)

	assert.Equal(t, "def456", got[1].ID)
	assert.Equal(t, "Unknown", got[1].Title)
	assert.Equal(t, 61, got[1].Duration)
}

func TestParseSearchOutputEmpty(t *testing.T) {
	got, err := parseSearchOutput(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseSearchOutputMalformed(t *testing.T) {
	_, err := parseSearchOutput([]byte(`{"id":"abc"` + "\n" + `{{{`))
	assert.Error(t, err)
}

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		wants string
	}{
		{"latin", "lofi beats", "lofi beats"},
		{"khmer no hint", "បទសេដ", "បទសេដ"},
		{"cjk gets hint", "周杰伦", "周杰伦 歌曲"},
		{"mixed cjk", "jay 周杰伦", "jay 周杰伦 歌曲"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeQuery(tt.in)
			decoded, err := url.QueryUnescape(got)
			require.NoError(t, err)
			assert.Equal(t, tt.wants, decoded)
			assert.False(t, strings.ContainsAny(got, " 歌"))
		})
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	fe := &FetchError{Reason: "boom", Err: inner}
	assert.ErrorIs(t, fe, inner)
	assert.Contains(t, fe.Error(), "boom")
}
