// Package telegram delivers rendered news messages to the configured chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/platform/htmlutils"
)

// MaxMessageSize is Telegram's message length limit in UTF-16 code units.
const MaxMessageSize = 4096

// Sender posts one message. Implementations must be safe for sequential
// reuse across pipeline runs.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type botSender struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// NewSender creates a Sender posting HTML-mode messages to chatID.
func NewSender(token string, chatID int64, logger *zerolog.Logger) (Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	logger.Info().Str("bot", api.Self.UserName).Int64("chat_id", chatID).Msg("telegram sender ready")

	return &botSender{api: api, chatID: chatID, logger: logger}, nil
}

// Send posts the text, splitting into multiple messages when it exceeds
// Telegram's length limit. Later parts are not attempted after a failed
// part; the whole send reports failure so no history is recorded for it.
func (s *botSender) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send canceled: %w", err)
	}

	parts := htmlutils.SplitMessage(text, MaxMessageSize)

	for i, part := range parts {
		msg := tgbotapi.NewMessage(s.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := s.api.Send(msg); err != nil {
			return fmt.Errorf("send message part %d/%d: %w", i+1, len(parts), err)
		}
	}

	return nil
}
