// Package bot wires searches, selections and deliveries together: it pulls
// Telegram updates, runs one worker per chat, and hands selections to the
// download cache.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haih88646-coder/music-bot/internal/cache"
	"github.com/haih88646-coder/music-bot/internal/config"
	"github.com/haih88646-coder/music-bot/internal/metrics"
	"github.com/haih88646-coder/music-bot/internal/resolver"
	"github.com/haih88646-coder/music-bot/internal/sanitize"
	"github.com/haih88646-coder/music-bot/internal/session"
	"github.com/haih88646-coder/music-bot/internal/telegram"
)

const callbackPrefix = "dl_"

// ResultOption is one selectable search result.
type ResultOption struct {
	Label string
	Token string
}

// Delivery is the outbound messaging surface. *telegram.Client satisfies it
// through the adapter in delivery.go; tests substitute a fake.
type Delivery interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteText(ctx context.Context, chatID int64, messageID int) error
	PresentResults(ctx context.Context, chatID int64, messageID int, summary string, opts []ResultOption) error
	SendAudio(ctx context.Context, chatID int64, path, title, performer string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Source supplies updates; *telegram.Client satisfies it.
type Source interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telegram.Update, error)
}

type Bot struct {
	cfg      *config.Config
	src      Source
	out      Delivery
	res      resolver.Resolver
	sessions *session.Store
	store    *cache.Store
	log      *zap.Logger

	mu      sync.Mutex
	workers map[int64]chan telegram.Update

	// fetchCtx outlives individual conversations so a download keeps
	// going after the requesting chat moves on.
	fetchCtx context.Context
}

func New(cfg *config.Config, src Source, out Delivery, res resolver.Resolver, sessions *session.Store, store *cache.Store, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		cfg:      cfg,
		src:      src,
		out:      out,
		res:      res,
		sessions: sessions,
		store:    store,
		log:      log,
		workers:  make(map[int64]chan telegram.Update),
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.fetchCtx = ctx
	offset := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := b.src.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn("poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.dispatch(ctx, u)
		}
	}
}

func updateChatID(u telegram.Update) (int64, bool) {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID, true
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

// dispatch routes the update to its chat's worker, starting one if needed.
// Updates within a chat are handled in order; chats run independently.
func (b *Bot) dispatch(ctx context.Context, u telegram.Update) {
	chatID, ok := updateChatID(u)
	if !ok {
		return
	}
	if !b.cfg.Allowed(chatID) {
		b.log.Info("chat not allowed", zap.Int64("chat_id", chatID))
		return
	}

	b.mu.Lock()
	ch, ok := b.workers[chatID]
	if !ok {
		ch = make(chan telegram.Update, 8)
		b.workers[chatID] = ch
		go b.chatWorker(ctx, chatID, ch)
	}
	b.mu.Unlock()

	select {
	case ch <- u:
	default:
		b.log.Warn("chat queue full, dropping update", zap.Int64("chat_id", chatID))
		_, _ = b.out.SendText(ctx, chatID, "I'm still working on your previous request, please wait.")
	}
}

func (b *Bot) chatWorker(ctx context.Context, chatID int64, ch chan telegram.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-ch:
			b.handleUpdate(ctx, u)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, m.Chat.ID, text)
		return
	}
	b.handleSearch(ctx, m.Chat.ID, text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, text string) {
	cmd := strings.ToLower(strings.Fields(text)[0])
	cmd = strings.SplitN(cmd, "@", 2)[0]
	switch cmd {
	case "/start":
		_, _ = b.out.SendText(ctx, chatID, startText)
	case "/help":
		_, _ = b.out.SendText(ctx, chatID, helpText)
	default:
		_, _ = b.out.SendText(ctx, chatID, "Unknown command. Send /help for usage.")
	}
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, query string) {
	if len([]rune(query)) < b.cfg.MinQueryRunes {
		metrics.Searches.WithLabelValues("too_short").Inc()
		_, _ = b.out.SendText(ctx, chatID, msgQueryTooShort)
		return
	}

	statusID, err := b.out.SendText(ctx, chatID, msgSearching)
	if err != nil {
		b.log.Warn("send status failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	cands, err := b.res.Search(ctx, query, b.cfg.SearchLimit)
	if err != nil {
		metrics.Searches.WithLabelValues("error").Inc()
		b.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		_ = b.out.EditText(ctx, chatID, statusID, msgSearchUnavailable)
		return
	}
	if len(cands) == 0 {
		metrics.Searches.WithLabelValues("empty").Inc()
		_ = b.out.EditText(ctx, chatID, statusID, msgNoResults)
		return
	}
	if len(cands) > b.cfg.MaxResults {
		cands = cands[:b.cfg.MaxResults]
	}
	metrics.Searches.WithLabelValues("ok").Inc()

	b.sessions.Put(chatID, query, cands)

	opts := make([]ResultOption, len(cands))
	for i, c := range cands {
		opts[i] = ResultOption{
			Label: fmt.Sprintf("%d. %s", i+1, buttonLabel(c.Title)),
			Token: callbackPrefix + strconv.Itoa(i),
		}
	}
	summary := formatResults(query, cands)
	if err := b.out.PresentResults(ctx, chatID, statusID, summary, opts); err != nil {
		b.log.Warn("present results failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	_ = b.out.AnswerCallback(ctx, cb.ID, "")
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	index, ok := parseSelection(cb.Data)
	if !ok {
		b.log.Warn("unrecognized callback", zap.String("data", cb.Data))
		return
	}
	metrics.Selections.Inc()

	cand, err := b.sessions.Resolve(chatID, index)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			_, _ = b.out.SendText(ctx, chatID, msgSessionExpired)
		case errors.Is(err, session.ErrBadIndex):
			_, _ = b.out.SendText(ctx, chatID, msgSelectionInvalid)
		}
		return
	}

	b.deliver(ctx, chatID, cand)
}

// deliver fetches (or reuses) the audio for a candidate and sends it.
func (b *Bot) deliver(ctx context.Context, chatID int64, cand resolver.Candidate) {
	track := cache.Track{
		SourceID:  cand.ID,
		Title:     cand.Title,
		Performer: cand.Uploader,
	}

	if path, hit := b.store.Lookup(cand.ID); hit {
		metrics.CacheHits.Inc()
		b.sendAudio(ctx, chatID, 0, path, cand)
		return
	}
	metrics.CacheMisses.Inc()

	statusID, err := b.out.SendText(ctx, chatID, fmt.Sprintf(msgDownloadingFmt, buttonLabel(cand.Title)))
	if err != nil {
		b.log.Warn("send status failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	fetchCtx := b.fetchCtx
	if fetchCtx == nil {
		fetchCtx = ctx
	}
	path, err := b.store.GetOrFetch(ctx, track, func(context.Context) (string, error) {
		return b.res.Fetch(fetchCtx, cand)
	})
	if err != nil {
		metrics.Fetches.WithLabelValues("error").Inc()
		b.log.Warn("fetch failed", zap.String("source_id", cand.ID), zap.Error(err))
		if errors.Is(err, cache.ErrBusy) {
			b.editOrSend(ctx, chatID, statusID, msgTooBusy)
		} else {
			b.editOrSend(ctx, chatID, statusID, msgDownloadFailed)
		}
		return
	}
	metrics.Fetches.WithLabelValues("ok").Inc()

	b.sendAudio(ctx, chatID, statusID, path, cand)
}

func (b *Bot) sendAudio(ctx context.Context, chatID int64, statusID int, path string, cand resolver.Candidate) {
	if err := b.out.SendAudio(ctx, chatID, path, cand.Title, cand.Uploader); err != nil {
		metrics.Deliveries.WithLabelValues("error").Inc()
		b.log.Warn("send audio failed", zap.String("source_id", cand.ID), zap.Error(err))
		b.editOrSend(ctx, chatID, statusID, msgSendFailed)
		return
	}
	metrics.Deliveries.WithLabelValues("ok").Inc()
	if statusID != 0 {
		_ = b.out.DeleteText(ctx, chatID, statusID)
	}
}

// editOrSend updates the status message in place, or sends fresh text when
// there is no status message to edit.
func (b *Bot) editOrSend(ctx context.Context, chatID int64, statusID int, text string) {
	if statusID != 0 {
		if err := b.out.EditText(ctx, chatID, statusID, text); err == nil {
			return
		}
	}
	_, _ = b.out.SendText(ctx, chatID, text)
}

// buttonLabel bounds a title for keyboard buttons, which get cramped on
// phone screens well before Telegram's own limit.
func buttonLabel(title string) string {
	const max = 35
	s := sanitize.Display(title)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}

func parseSelection(data string) (int, bool) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(data[len(callbackPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func formatResults(query string, cands []resolver.Candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Results for %q:\n", query)
	for i, c := range cands {
		fmt.Fprintf(&sb, "%d. %s", i+1, sanitize.Display(c.Title))
		if c.Uploader != "" {
			fmt.Fprintf(&sb, " - %s", c.Uploader)
		}
		if c.Duration > 0 {
			fmt.Fprintf(&sb, " (%s)", formatDuration(c.Duration))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\nTap a number to download.")
	return sb.String()
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
