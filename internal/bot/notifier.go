package bot

import (
	"context"

	"rangebook/internal/domain"

	"github.com/rs/zerolog"
)

// TelegramNotifier доставляет уведомления сервисов в чат пользователя.
type TelegramNotifier struct {
	tg     domain.TelegramService
	logger *zerolog.Logger
}

func NewTelegramNotifier(tg domain.TelegramService, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{tg: tg, logger: logger}
}

func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, notification domain.Notification) {
	text := notification.Title
	if notification.Description != "" {
		text += "\n" + notification.Description
	}

	switch notification.Severity {
	case domain.SeveritySuccess:
		text = "✅ " + text
	case domain.SeverityError:
		text = "⚠️ " + text
	}

	if _, err := n.tg.SendMessage(chatID, text); err != nil {
		n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось доставить уведомление")
	}
}
