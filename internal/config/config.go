// Package config holds bot + resolver + mock API settings.
// Load from env; an optional config.yaml overlays non-empty values on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	// Telegram
	TelegramToken  string // required for `run`; startup-fatal when missing
	TelegramAPIURL string // override for tests / local bot API servers
	AllowedChatIDs []int64

	// Paths
	DownloadDir    string // completed MP3 artifacts land here
	CacheIndexPath string // sqlite index of finished downloads; "" = in-memory only
	CookieFile     string // optional cookies passed to the extractor

	// Resolver
	YTDLPPath   string
	SearchLimit int // results requested from the index per search
	MaxResults  int // results surfaced to the user

	// Pipeline
	MinQueryRunes    int
	FetchConcurrency int
	SessionTTL       time.Duration
	PollTimeout      time.Duration // getUpdates long-poll window

	// Mock generation API
	MockAddr string

	// Logging
	LogJSON bool
}

// yamlConfig mirrors Config for the optional config.yaml overlay.
// Only non-zero values override what came from the environment.
type yamlConfig struct {
	TelegramToken    string `yaml:"telegram-token"`
	TelegramAPIURL   string `yaml:"telegram-api-url"`
	AllowedChatIDs   []int64 `yaml:"allowed-chat-ids"`
	DownloadDir      string `yaml:"download-dir"`
	CacheIndexPath   string `yaml:"cache-index"`
	CookieFile       string `yaml:"cookie-file"`
	YTDLPPath        string `yaml:"ytdlp-path"`
	SearchLimit      int    `yaml:"search-limit"`
	MaxResults       int    `yaml:"max-results"`
	FetchConcurrency int    `yaml:"fetch-concurrency"`
	SessionTTL       string `yaml:"session-ttl"`
	MockAddr         string `yaml:"mock-addr"`
}

// Load reads config from environment. Call godotenv.Load() before Load() to
// use a .env file.
func Load() *Config {
	c := &Config{
		TelegramToken:    os.Getenv("MUSICBOT_TELEGRAM_TOKEN"),
		TelegramAPIURL:   getEnv("MUSICBOT_TELEGRAM_API_URL", "https://api.telegram.org"),
		AllowedChatIDs:   getEnvInt64List("MUSICBOT_ALLOWED_CHAT_IDS"),
		DownloadDir:      getEnv("MUSICBOT_DOWNLOAD_DIR", "downloads"),
		CacheIndexPath:   getEnv("MUSICBOT_CACHE_INDEX", ""),
		CookieFile:       os.Getenv("MUSICBOT_COOKIE_FILE"),
		YTDLPPath:        getEnv("MUSICBOT_YTDLP_PATH", "yt-dlp"),
		SearchLimit:      getEnvInt("MUSICBOT_SEARCH_LIMIT", 15),
		MaxResults:       getEnvInt("MUSICBOT_MAX_RESULTS", 10),
		MinQueryRunes:    getEnvInt("MUSICBOT_MIN_QUERY_RUNES", 2),
		FetchConcurrency: getEnvInt("MUSICBOT_FETCH_CONCURRENCY", 3),
		SessionTTL:       getEnvDuration("MUSICBOT_SESSION_TTL", 10*time.Minute),
		PollTimeout:      getEnvDuration("MUSICBOT_POLL_TIMEOUT", 50*time.Second),
		MockAddr:         getEnv("MUSICBOT_MOCK_ADDR", ":8000"),
		LogJSON:          getEnvBool("MUSICBOT_LOG_JSON", false),
	}
	c.normalize()
	return c
}

func (c *Config) normalize() {
	c.TelegramAPIURL = strings.TrimRight(strings.TrimSpace(c.TelegramAPIURL), "/")
	if c.TelegramAPIURL == "" {
		c.TelegramAPIURL = "https://api.telegram.org"
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 15
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 10
	}
	if c.MaxResults > c.SearchLimit {
		c.MaxResults = c.SearchLimit
	}
	if c.MinQueryRunes <= 0 {
		c.MinQueryRunes = 2
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 3
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 10 * time.Minute
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 50 * time.Second
	}
}

// ApplyYAML overlays non-zero values from a YAML file onto c.
// A missing file is not an error; a malformed one is.
func (c *Config) ApplyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if y.TelegramToken != "" {
		c.TelegramToken = y.TelegramToken
	}
	if y.TelegramAPIURL != "" {
		c.TelegramAPIURL = y.TelegramAPIURL
	}
	if len(y.AllowedChatIDs) > 0 {
		c.AllowedChatIDs = y.AllowedChatIDs
	}
	if y.DownloadDir != "" {
		c.DownloadDir = y.DownloadDir
	}
	if y.CacheIndexPath != "" {
		c.CacheIndexPath = y.CacheIndexPath
	}
	if y.CookieFile != "" {
		c.CookieFile = y.CookieFile
	}
	if y.YTDLPPath != "" {
		c.YTDLPPath = y.YTDLPPath
	}
	if y.SearchLimit > 0 {
		c.SearchLimit = y.SearchLimit
	}
	if y.MaxResults > 0 {
		c.MaxResults = y.MaxResults
	}
	if y.FetchConcurrency > 0 {
		c.FetchConcurrency = y.FetchConcurrency
	}
	if y.SessionTTL != "" {
		if d, err := time.ParseDuration(y.SessionTTL); err == nil && d > 0 {
			c.SessionTTL = d
		}
	}
	if y.MockAddr != "" {
		c.MockAddr = y.MockAddr
	}
	c.normalize()
	return nil
}

// ValidateBot checks the settings that `run` cannot start without.
// Missing or invalid startup configuration is fatal; nothing else is.
func (c *Config) ValidateBot() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("MUSICBOT_TELEGRAM_TOKEN is not set")
	}
	if err := os.MkdirAll(c.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download dir %s: %w", c.DownloadDir, err)
	}
	if c.CookieFile != "" {
		if _, err := os.Stat(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file %s: %w", c.CookieFile, err)
		}
	}
	return nil
}

// Allowed reports whether chatID may use the bot. An empty allowlist means open.
func (c *Config) Allowed(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvInt64List(key string) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
