// File: internal/infra/adapters/textmsg/telegram.go
package textmsg

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"askline/internal/domain/ports/adapter"
)

var _ adapter.TextTransport = (*TelegramTransport)(nil)

// TelegramTransport sends relay messages through a Telegram bot. The relay
// address is the numeric chat id.
type TelegramTransport struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramTransport(token string) (*TelegramTransport, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramTransport{bot: bot}, nil
}

func (t *TelegramTransport) Send(ctx context.Context, address, body string) (string, error) {
	chatID, err := strconv.ParseInt(address, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed telegram address %q: %w", address, err)
	}
	msg := tgbotapi.NewMessage(chatID, body)
	sent, err := t.bot.Send(msg)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}
