// Package mockapi is a standalone mock music-generation HTTP service. It
// synthesizes silent WAV audio for any prompt, which makes it a stand-in
// backend for integration tests and demos without touching real providers.
package mockapi

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	minDuration = 5
	maxDuration = 120

	sampleRate    = 44100
	numChannels   = 2
	bitsPerSample = 16
)

type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	Style      string `json:"style"`
	Mood       string `json:"mood"`
	Tempo      string `json:"tempo"`
	Instrument string `json:"instrument"`
	Duration   int    `json:"duration"`
}

func (r *GenerateRequest) applyDefaults() {
	if r.Style == "" {
		r.Style = "lofi"
	}
	if r.Mood == "" {
		r.Mood = "calm"
	}
	if r.Tempo == "" {
		r.Tempo = "medium"
	}
	if r.Instrument == "" {
		r.Instrument = "guitar"
	}
	if r.Duration == 0 {
		r.Duration = 30
	}
}

type GenerateResponse struct {
	Success     bool   `json:"success"`
	Title       string `json:"title"`
	Style       string `json:"style"`
	Mood        string `json:"mood"`
	Tempo       string `json:"tempo"`
	Instrument  string `json:"instrument"`
	Duration    int    `json:"duration"`
	AudioURL    string `json:"audio_url,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Error       string `json:"error,omitempty"`
}

type track struct {
	ID       string
	Title    string
	FilePath string
	Created  time.Time
}

// Server holds generated tracks in memory and their audio in a temp dir.
type Server struct {
	log *zap.Logger
	dir string

	mu     sync.Mutex
	tracks map[string]*track
}

func NewServer(log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir, err := os.MkdirTemp("", "mockapi-audio-")
	if err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Server{
		log:    log,
		dir:    dir,
		tracks: make(map[string]*track),
	}, nil
}

// Handler returns the service's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/audio/", s.handleAudio)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then removes generated audio files.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		s.cleanup()
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shCtx)
	s.cleanup()
	return err
}

func (s *Server) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		_ = os.Remove(t.FilePath)
	}
	_ = os.Remove(s.dir)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Mock Music Generator API",
		"endpoints": map[string]string{
			"GET /health":     "Health check",
			"POST /generate":  "Generate music",
			"GET /audio/{id}": "Get audio",
			"GET /metrics":    "Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "Mock Music Generator",
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			Success: false, Title: "Error", Error: "invalid JSON body",
		})
		return
	}
	req.applyDefaults()
	if req.Duration < minDuration || req.Duration > maxDuration {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			Success: false, Title: "Error",
			Error: fmt.Sprintf("duration must be between %d and %d seconds", minDuration, maxDuration),
		})
		return
	}

	id := "track_" + uuid.NewString()
	title := titleFromPrompt(req.Prompt)
	audio := silentWAV(req.Duration)

	path := filepath.Join(s.dir, id+".wav")
	if err := os.WriteFile(path, audio, 0644); err != nil {
		s.log.Error("write audio failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{
			Success: false, Title: "Error", Error: "could not store audio",
		})
		return
	}

	s.mu.Lock()
	s.tracks[id] = &track{ID: id, Title: title, FilePath: path, Created: time.Now()}
	s.mu.Unlock()
	s.log.Info("generated track", zap.String("id", id), zap.String("title", title), zap.Int("duration", req.Duration))

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:     true,
		Title:       title,
		Style:       titleCase(req.Style),
		Mood:        titleCase(req.Mood),
		Tempo:       titleCase(req.Tempo),
		Instrument:  titleCase(req.Instrument),
		Duration:    req.Duration,
		AudioURL:    "/audio/" + id,
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/audio/")
	s.mu.Lock()
	t, ok := s.tracks[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "track not found", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(t.FilePath); err != nil {
		http.Error(w, "audio file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".wav"))
	http.ServeFile(w, r, t.FilePath)
}

// titleFromPrompt builds a track title from the first words of the prompt.
func titleFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return "Generated Track"
	}
	if len(words) < 3 {
		return titleCase(strings.Join(words, " "))
	}
	return titleCase(strings.Join(words[:3], " ")) + "..."
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// silentWAV returns a PCM WAV of the given length containing silence.
func silentWAV(durationSec int) []byte {
	numSamples := sampleRate * durationSec
	dataSize := numSamples * numChannels * bitsPerSample / 8
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, numChannels)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(byteRate))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)
	return buf
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
