package telegram

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("TESTTOKEN", srv.URL, nil)
}

func ok(w http.ResponseWriter, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		ok(w, Message{MessageID: 77, Chat: Chat{ID: 5}})
	})

	id, err := c.SendMessage(context.Background(), 5, "hello")
	require.NoError(t, err)
	assert.Equal(t, 77, id)
	assert.Equal(t, "/botTESTTOKEN/sendMessage", gotPath)
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, float64(5), gotBody["chat_id"])
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		ok(w, Message{MessageID: 1})
	})

	kb := InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "1. Song", CallbackData: "dl_0"}},
	}}
	_, err := c.SendMessageWithKeyboard(context.Background(), 5, "pick one", kb)
	require.NoError(t, err)

	markup := gotBody["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	require.Len(t, rows, 1)
	btn := rows[0].([]any)[0].(map[string]any)
	assert.Equal(t, "dl_0", btn["callback_data"])
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error_code": 400, "description": "Bad Request: message not found",
		})
	})

	err := c.EditMessageText(context.Background(), 1, 2, "text")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Contains(t, apiErr.Description, "message not found")
}

func TestGetUpdates(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		ok(w, []Update{
			{UpdateID: 100, Message: &Message{MessageID: 1, Chat: Chat{ID: 9}, Text: "hi"}},
			{UpdateID: 101, CallbackQuery: &CallbackQuery{ID: "cb", Data: "dl_2"}},
		})
	})

	updates, err := c.GetUpdates(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, float64(100), gotBody["offset"])
	assert.Equal(t, "hi", updates[0].Message.Text)
	assert.Equal(t, "dl_2", updates[1].CallbackQuery.Data)
}

func TestSendAudioMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc123.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3audio"), 0644))

	fields := map[string]string{}
	var uploadName string
	var uploadData []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, _ := io.ReadAll(part)
			if part.FormName() == "audio" {
				uploadName = part.FileName()
				uploadData = data
			} else {
				fields[part.FormName()] = string(data)
			}
		}
		ok(w, Message{MessageID: 3})
	})

	long := strings.Repeat("很", 70)
	err := c.SendAudio(context.Background(), 42, path, long, "Some Artist")
	require.NoError(t, err)

	assert.Equal(t, "42", fields["chat_id"])
	assert.Equal(t, 64, len([]rune(fields["title"])))
	assert.Equal(t, "Some Artist", fields["performer"])
	assert.Equal(t, []byte("ID3audio"), uploadData)
	assert.True(t, strings.HasSuffix(uploadName, ".mp3"))
	assert.NotContains(t, uploadName, "/")
}

func TestGetMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTESTTOKEN/getMe", r.URL.Path)
		ok(w, User{ID: 12345, Username: "music_bot"})
	})

	u, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "music_bot", u.Username)
}
