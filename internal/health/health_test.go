package health

import (
	"context"
	"errors"
	"testing"

	"github.com/haih88646-coder/music-bot/internal/telegram"
)

func TestCheckResolver_missingBinary(t *testing.T) {
	_, err := CheckResolver(context.Background(), "/nonexistent/yt-dlp")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

type fakeIdentity struct {
	user telegram.User
	err  error
}

func (f fakeIdentity) GetMe(ctx context.Context) (telegram.User, error) {
	return f.user, f.err
}

func TestCheckTelegram_ok(t *testing.T) {
	name, err := CheckTelegram(context.Background(), fakeIdentity{user: telegram.User{Username: "music_bot"}})
	if err != nil {
		t.Fatalf("CheckTelegram: %v", err)
	}
	if name != "music_bot" {
		t.Fatalf("username = %q, want music_bot", name)
	}
}

func TestCheckTelegram_badToken(t *testing.T) {
	_, err := CheckTelegram(context.Background(), fakeIdentity{err: errors.New("401 Unauthorized")})
	if err == nil {
		t.Fatal("expected error for bad token")
	}
}
