// Package telegram is a thin client for the Telegram Bot HTTP API. It covers
// only the methods the bot uses: long-poll updates, text messaging with
// inline keyboards, and audio upload.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haih88646-coder/music-bot/internal/httpclient"
	"github.com/haih88646-coder/music-bot/internal/sanitize"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	// Bot API truncates these fields itself; we truncate first so the
	// values we log match what users see.
	maxAudioMetaRunes = 64
)

// APIError is a non-ok response from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type Client struct {
	token   string
	apiBase string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewClient(token, apiURL string, log *zap.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		token:   token,
		apiBase: apiURL,
		http:    httpclient.Default(),
		limiter: rate.NewLimiter(25, 5),
		log:     log,
	}
}

func (c *Client) methodURL(method string) string {
	return c.apiBase + "/bot" + c.token + "/" + method
}

// call posts a JSON payload to a Bot API method and decodes the envelope.
// 429s and 5xx responses are retried by rebuilding the request.
func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode: %w", method, err)
	}
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	resp, err := httpclient.DoWithRetry(ctx, c.http, build, httpclient.DefaultRetryPolicy)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()
	return c.decode(method, resp.Body, result)
}

func (c *Client) decode(method string, r io.Reader, result any) error {
	var env apiResponse
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("telegram %s: decode: %w", method, err)
	}
	if !env.OK {
		return &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
	}
	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe verifies the token and returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var u User
	err := c.call(ctx, "getMe", struct{}{}, &u)
	return u, err
}

// GetUpdates long-polls for updates past offset. The HTTP timeout is padded
// past the poll timeout so the server side closes the poll, not us.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	client := httpclient.WithTimeout(timeout + 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("getUpdates"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}
	defer resp.Body.Close()
	var updates []Update
	if err := c.decode("getUpdates", resp.Body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	var msg Message
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &msg)
	return msg.MessageID, err
}

// SendMessageWithKeyboard sends text with an inline keyboard attached.
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, kb InlineKeyboardMarkup) (int, error) {
	var msg Message
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"reply_markup": kb,
	}, &msg)
	return msg.MessageID, err
}

// EditMessageText rewrites an existing message in place.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

// EditMessageWithKeyboard rewrites a message and replaces its keyboard.
func (c *Client) EditMessageWithKeyboard(ctx context.Context, chatID int64, messageID int, text string, kb InlineKeyboardMarkup) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"text":         text,
		"reply_markup": kb,
	}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// AnswerCallbackQuery acknowledges a button press so the client stops its
// loading spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SendAudio uploads the MP3 at path as an audio message. The upload filename
// is derived from the title so clients save a readable name; the artifact on
// disk keeps its source-id name.
func (c *Client) SendAudio(ctx context.Context, chatID int64, path, title, performer string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telegram sendAudio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	if title != "" {
		_ = w.WriteField("title", truncateRunes(title, maxAudioMetaRunes))
	}
	if performer != "" {
		_ = w.WriteField("performer", truncateRunes(performer, maxAudioMetaRunes))
	}
	part, err := w.CreateFormFile("audio", sanitize.Name(title)+".mp3")
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("telegram sendAudio: read artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendAudio"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	client := httpclient.WithTimeout(5 * time.Minute)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendAudio: %w", err)
	}
	defer resp.Body.Close()
	if err := c.decode("sendAudio", resp.Body, nil); err != nil {
		return err
	}
	c.log.Debug("audio sent", zap.Int64("chat_id", chatID), zap.String("path", path))
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
