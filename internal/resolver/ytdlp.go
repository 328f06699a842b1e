package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// adultAgeLimit: entries at or above this age rating are dropped.
	// Filtering happens client-side after retrieval; the flat-extraction
	// mode of the index does not support filtering at the query level.
	adultAgeLimit = 18

	audioQuality = "192K"
)

// YTDLP resolves queries and downloads through the yt-dlp binary.
type YTDLP struct {
	Path        string // binary name or path; "yt-dlp" when empty
	DownloadDir string
	CookieFile  string // optional
	Log         *zap.Logger
}

func (y *YTDLP) bin() string {
	if y.Path != "" {
		return y.Path
	}
	return "yt-dlp"
}

func (y *YTDLP) logger() *zap.Logger {
	if y.Log != nil {
		return y.Log
	}
	return zap.NewNop()
}

// searchEntry is the subset of yt-dlp's flat-playlist JSON we care about.
type searchEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
	AgeLimit int     `json:"age_limit"`
}

// Search runs a flat-playlist ytsearch and parses one JSON object per line.
func (y *YTDLP) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 15
	}
	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
		"--ignore-errors",
	}
	if y.CookieFile != "" {
		args = append(args, "--cookies", y.CookieFile)
	}
	args = append(args, fmt.Sprintf("ytsearch%d:%s", limit, EncodeQuery(query)))

	cmd := exec.CommandContext(ctx, y.bin(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		y.logger().Warn("search backend failed",
			zap.String("query", query),
			zap.String("stderr", trimOutput(stderr.String())),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	cands, err := parseSearchOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return cands, nil
}

// parseSearchOutput decodes newline-delimited JSON entries, dropping entries
// without an id and age-restricted entries. Order is preserved.
func parseSearchOutput(data []byte) ([]Candidate, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var out []Candidate
	for dec.More() {
		var e searchEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("malformed search entry: %v", err)
		}
		if e.ID == "" || e.AgeLimit >= adultAgeLimit {
			continue
		}
		title := e.Title
		if title == "" {
			title = "Unknown"
		}
		out = append(out, Candidate{
			ID:       e.ID,
			Title:    title,
			Uploader: e.Uploader,
			Duration: int(e.Duration),
			URL:      "https://youtu.be/" + e.ID,
		})
	}
	return out, nil
}

// Fetch downloads the candidate's audio and transcodes to MP3 at a fixed
// quality. The artifact lands at <DownloadDir>/<id>.mp3.
func (y *YTDLP) Fetch(ctx context.Context, c Candidate) (string, error) {
	if c.ID == "" || c.URL == "" {
		return "", &FetchError{Reason: "candidate has no source id or URL"}
	}
	dest := filepath.Join(y.DownloadDir, c.ID+".mp3")
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", audioQuality,
		"--no-playlist",
		"--no-warnings",
		"--continue",
		"-o", filepath.Join(y.DownloadDir, "%(id)s.%(ext)s"),
	}
	if y.CookieFile != "" {
		args = append(args, "--cookies", y.CookieFile)
	}
	args = append(args, c.URL)

	cmd := exec.CommandContext(ctx, y.bin(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &FetchError{Reason: trimOutput(string(out)), Err: err}
	}
	if fi, statErr := os.Stat(dest); statErr != nil || fi.Size() == 0 {
		return "", &FetchError{Reason: "no audio produced for " + c.ID, Err: statErr}
	}
	y.logger().Info("fetched audio", zap.String("id", c.ID), zap.String("path", dest))
	return dest, nil
}

// EncodeQuery URL-encodes the query for the search engine. Queries containing
// CJK characters get a hint token appended first, which steers the index
// toward music results for that script.
func EncodeQuery(q string) string {
	for _, r := range q {
		if r >= 0x4E00 && r <= 0x9FFF {
			q += " 歌曲"
			break
		}
	}
	return url.QueryEscape(q)
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	const max = 300
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
