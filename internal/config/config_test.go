package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()
	assert.Equal(t, "https://api.telegram.org", c.TelegramAPIURL)
	assert.Equal(t, "downloads", c.DownloadDir)
	assert.Equal(t, "yt-dlp", c.YTDLPPath)
	assert.Equal(t, 15, c.SearchLimit)
	assert.Equal(t, 10, c.MaxResults)
	assert.Equal(t, 2, c.MinQueryRunes)
	assert.Equal(t, 3, c.FetchConcurrency)
	assert.Equal(t, 10*time.Minute, c.SessionTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MUSICBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("MUSICBOT_TELEGRAM_API_URL", "http://localhost:9000/")
	t.Setenv("MUSICBOT_ALLOWED_CHAT_IDS", "42, -1001234 ,9")
	t.Setenv("MUSICBOT_SEARCH_LIMIT", "20")
	t.Setenv("MUSICBOT_SESSION_TTL", "5m")

	c := Load()
	assert.Equal(t, "123:abc", c.TelegramToken)
	assert.Equal(t, "http://localhost:9000", c.TelegramAPIURL, "trailing slash trimmed")
	assert.Equal(t, []int64{42, -1001234, 9}, c.AllowedChatIDs)
	assert.Equal(t, 20, c.SearchLimit)
	assert.Equal(t, 5*time.Minute, c.SessionTTL)
}

func TestMaxResultsCappedBySearchLimit(t *testing.T) {
	t.Setenv("MUSICBOT_SEARCH_LIMIT", "5")
	t.Setenv("MUSICBOT_MAX_RESULTS", "10")
	c := Load()
	assert.Equal(t, 5, c.MaxResults)
}

func TestApplyYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"telegram-token: yaml-token\ndownload-dir: /tmp/music\nsession-ttl: 3m\n"), 0o644))

	t.Setenv("MUSICBOT_TELEGRAM_TOKEN", "env-token")
	c := Load()
	require.NoError(t, c.ApplyYAML(path))

	assert.Equal(t, "yaml-token", c.TelegramToken, "yaml overlays env")
	assert.Equal(t, "/tmp/music", c.DownloadDir)
	assert.Equal(t, 3*time.Minute, c.SessionTTL)
	assert.Equal(t, 15, c.SearchLimit, "untouched values keep env/default")
}

func TestApplyYAMLMissingFile(t *testing.T) {
	c := Load()
	assert.NoError(t, c.ApplyYAML(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestApplyYAMLMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram-token: [broken"), 0o644))
	c := Load()
	assert.Error(t, c.ApplyYAML(path))
}

func TestValidateBot(t *testing.T) {
	c := Load()
	c.TelegramToken = ""
	assert.Error(t, c.ValidateBot(), "missing token is startup-fatal")

	c.TelegramToken = "123:abc"
	c.DownloadDir = filepath.Join(t.TempDir(), "dl")
	assert.NoError(t, c.ValidateBot())
	_, err := os.Stat(c.DownloadDir)
	assert.NoError(t, err, "download dir created")

	c.CookieFile = filepath.Join(t.TempDir(), "absent.txt")
	assert.Error(t, c.ValidateBot(), "configured but missing cookie file is fatal")
}

func TestAllowed(t *testing.T) {
	c := &Config{}
	assert.True(t, c.Allowed(7), "empty allowlist is open")
	c.AllowedChatIDs = []int64{1, 2}
	assert.True(t, c.Allowed(2))
	assert.False(t, c.Allowed(7))
}
