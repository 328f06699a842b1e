// Package health runs startup checks for the bot's two external
// dependencies: the yt-dlp binary and the Telegram Bot API.
package health

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/haih88646-coder/music-bot/internal/telegram"
)

// CheckResolver verifies the yt-dlp binary is present and runnable.
// Returns the reported version on success.
func CheckResolver(ctx context.Context, binary string) (string, error) {
	if binary == "" {
		binary = "yt-dlp"
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp not runnable: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Identity is the self-check surface of the Telegram client.
type Identity interface {
	GetMe(ctx context.Context) (telegram.User, error)
}

// CheckTelegram verifies the bot token against the API. Returns the bot's
// username on success.
func CheckTelegram(ctx context.Context, bot Identity) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	u, err := bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram token check failed: %w", err)
	}
	return u.Username, nil
}
