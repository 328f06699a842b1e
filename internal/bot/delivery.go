package bot

import (
	"context"

	"github.com/haih88646-coder/music-bot/internal/telegram"
)

// TelegramDelivery adapts the Telegram client to the Delivery surface.
type TelegramDelivery struct {
	Client *telegram.Client
}

func (d TelegramDelivery) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	return d.Client.SendMessage(ctx, chatID, text)
}

func (d TelegramDelivery) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	return d.Client.EditMessageText(ctx, chatID, messageID, text)
}

func (d TelegramDelivery) DeleteText(ctx context.Context, chatID int64, messageID int) error {
	return d.Client.DeleteMessage(ctx, chatID, messageID)
}

func (d TelegramDelivery) PresentResults(ctx context.Context, chatID int64, messageID int, summary string, opts []ResultOption) error {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, []telegram.InlineKeyboardButton{
			{Text: o.Label, CallbackData: o.Token},
		})
	}
	kb := telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
	if messageID != 0 {
		if err := d.Client.EditMessageWithKeyboard(ctx, chatID, messageID, summary, kb); err == nil {
			return nil
		}
	}
	_, err := d.Client.SendMessageWithKeyboard(ctx, chatID, summary, kb)
	return err
}

func (d TelegramDelivery) SendAudio(ctx context.Context, chatID int64, path, title, performer string) error {
	return d.Client.SendAudio(ctx, chatID, path, title, performer)
}

func (d TelegramDelivery) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return d.Client.AnswerCallbackQuery(ctx, callbackID, text)
}
