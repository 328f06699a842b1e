// Command music-bot: Telegram music search and delivery bot.
//
//	run      Long-poll Telegram, search on free text, deliver MP3s (for systemd)
//	search   One-shot search from the terminal, results as a table
//	mockapi  Serve the mock music-generation HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/haih88646-coder/music-bot/internal/bot"
	"github.com/haih88646-coder/music-bot/internal/cache"
	"github.com/haih88646-coder/music-bot/internal/config"
	"github.com/haih88646-coder/music-bot/internal/health"
	"github.com/haih88646-coder/music-bot/internal/mockapi"
	"github.com/haih88646-coder/music-bot/internal/resolver"
	"github.com/haih88646-coder/music-bot/internal/session"
	"github.com/haih88646-coder/music-bot/internal/telegram"
)

func usage() {
	bold := color.New(color.Bold).FprintfFunc()
	bold(os.Stderr, "Usage: %s <run|search|mockapi> [flags]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "  run      Long-poll Telegram and serve music requests (for systemd)")
	fmt.Fprintln(os.Stderr, "  search   One-shot search from the terminal")
	fmt.Fprintln(os.Stderr, "  mockapi  Serve the mock music-generation API")
}

func newLogger(jsonOutput bool) (*zap.Logger, error) {
	if jsonOutput {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	_ = godotenv.Load()

	runCmd := pflag.NewFlagSet("run", pflag.ExitOnError)
	runConfig := runCmd.String("config", "config.yaml", "Optional YAML config overlay")
	runMetricsAddr := runCmd.String("metrics-addr", "", "Expose /metrics and /healthz on this address (empty = off)")
	runSkipHealth := runCmd.Bool("skip-health", false, "Skip yt-dlp and token checks at startup")

	searchCmd := pflag.NewFlagSet("search", pflag.ExitOnError)
	searchLimit := searchCmd.Int("limit", 10, "Max results to show")

	mockCmd := pflag.NewFlagSet("mockapi", pflag.ExitOnError)
	mockAddr := mockCmd.String("addr", "", "Listen address (default: MUSICBOT_MOCK_ADDR or :8000)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := newLogger(cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "run":
		_ = runCmd.Parse(os.Args[2:])
		if err := cfg.ApplyYAML(*runConfig); err != nil {
			log.Fatal("config overlay failed", zap.String("path", *runConfig), zap.Error(err))
		}
		if err := runBot(ctx, cfg, log, *runMetricsAddr, *runSkipHealth); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("bot exited", zap.Error(err))
		}

	case "search":
		_ = searchCmd.Parse(os.Args[2:])
		args := searchCmd.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "usage: music-bot search <query>")
			os.Exit(1)
		}
		query := ""
		for i, a := range args {
			if i > 0 {
				query += " "
			}
			query += a
		}
		if err := runSearch(ctx, cfg, log, query, *searchLimit); err != nil {
			log.Fatal("search failed", zap.Error(err))
		}

	case "mockapi":
		_ = mockCmd.Parse(os.Args[2:])
		addr := *mockAddr
		if addr == "" {
			addr = cfg.MockAddr
		}
		srv, err := mockapi.NewServer(log)
		if err != nil {
			log.Fatal("mockapi init failed", zap.Error(err))
		}
		if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("mockapi exited", zap.Error(err))
		}

	default:
		usage()
		os.Exit(1)
	}
}

func runBot(ctx context.Context, cfg *config.Config, log *zap.Logger, metricsAddr string, skipHealth bool) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	client := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIURL, log.Named("telegram"))
	res := &resolver.YTDLP{
		Path:        cfg.YTDLPPath,
		DownloadDir: cfg.DownloadDir,
		CookieFile:  cfg.CookieFile,
		Log:         log.Named("resolver"),
	}

	if !skipHealth {
		version, err := health.CheckResolver(ctx, cfg.YTDLPPath)
		if err != nil {
			return err
		}
		username, err := health.CheckTelegram(ctx, client)
		if err != nil {
			return err
		}
		log.Info("health checks passed",
			zap.String("yt_dlp_version", version),
			zap.String("bot_username", username))
	}

	var index *cache.Index
	if cfg.CacheIndexPath != "" {
		var err error
		index, err = cache.OpenIndex(cfg.CacheIndexPath)
		if err != nil {
			return err
		}
		defer index.Close()
	}
	store := cache.NewStore(int64(cfg.FetchConcurrency), index, log.Named("cache"))
	sessions := session.NewStore(cfg.SessionTTL)

	if metricsAddr != "" {
		go serveMetrics(ctx, log, metricsAddr, cfg.YTDLPPath)
	}

	b := bot.New(cfg, client, bot.TelegramDelivery{Client: client}, res, sessions, store, log.Named("bot"))
	log.Info("bot running", zap.String("download_dir", cfg.DownloadDir))
	return b.Run(ctx)
}

// serveMetrics exposes Prometheus metrics and a liveness probe.
func serveMetrics(ctx context.Context, log *zap.Logger, addr, ytdlpPath string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := health.CheckResolver(r.Context(), ytdlpPath); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()
	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("metrics server exited", zap.Error(err))
	}
}

// runSearch prints search results as a table, without touching Telegram.
func runSearch(ctx context.Context, cfg *config.Config, log *zap.Logger, query string, limit int) error {
	res := &resolver.YTDLP{
		Path:       cfg.YTDLPPath,
		CookieFile: cfg.CookieFile,
		Log:        log.Named("resolver"),
	}
	cands, err := res.Search(ctx, query, cfg.SearchLimit)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		color.Yellow("No results for %q", query)
		return nil
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Title", "Uploader", "Duration", "URL"})
	table.SetBorder(false)
	for i, c := range cands {
		dur := ""
		if c.Duration > 0 {
			dur = (time.Duration(c.Duration) * time.Second).String()
		}
		table.Append([]string{strconv.Itoa(i + 1), c.Title, c.Uploader, dur, c.URL})
	}
	table.Render()
	return nil
}
