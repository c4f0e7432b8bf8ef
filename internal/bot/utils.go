package bot

import (
	"context"
	"fmt"
	"strings"

	"rangebook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tg.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить сообщение")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	if _, err := b.tg.SendMarkdown(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить сообщение")
	}
}

func (b *Bot) setUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) {
	if err := b.states.SetUserState(ctx, userID, step, data); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Не удалось сохранить состояние")
	}
}

func (b *Bot) getUserState(ctx context.Context, userID int64) *models.UserState {
	state, err := b.states.GetUserState(ctx, userID)
	if err != nil || state == nil {
		return &models.UserState{UserID: userID, CurrentStep: models.StateMainMenu, TempData: map[string]interface{}{}}
	}
	if state.TempData == nil {
		state.TempData = map[string]interface{}{}
	}
	return state
}

func (b *Bot) clearUserState(ctx context.Context, userID int64) {
	if err := b.states.ClearUserState(ctx, userID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Не удалось очистить состояние")
	}
}

// handleMainMenu показывает главное меню. Менеджерам добавляется служебный ряд.
func (b *Bot) handleMainMenu(chatID int64) {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton("🎯 Записаться")},
		{
			tgbotapi.NewKeyboardButton("📊 Мои записи"),
			tgbotapi.NewKeyboardButton("📞 Контакты"),
		},
	}

	if b.users.IsManager(chatID) {
		rows = append(rows, []tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton("📈 Статистика"),
			tgbotapi.NewKeyboardButton("📋 Сводка"),
			tgbotapi.NewKeyboardButton("📥 Выгрузка"),
		})
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	if _, err := b.tg.SendWithKeyboard(chatID, "Выберите действие:", keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось показать меню")
	}
}

// normalizePhone приводит телефон к виду +7XXXXXXXXXX.
func normalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	switch {
	case len(d) == 11 && d[0] == '8':
		return "+7" + d[1:]
	case len(d) == 11 && d[0] == '7':
		return "+" + d
	case len(d) == 10:
		return "+7" + d
	default:
		return phone
	}
}

// notifyManagers рассылает сообщение всем менеджерам из конфига.
func (b *Bot) notifyManagers(text string) {
	for _, managerID := range b.config.Managers {
		b.sendMarkdown(managerID, text)
	}
}

func formatBookingSummary(draft *models.BookingDraft) string {
	return fmt.Sprintf(
		"📋 *Проверьте запись:*\n\n"+
			"🎯 Тир: %s\n"+
			"📅 Дата: %s (%s)\n"+
			"🕐 Время: %s\n"+
			"👥 Стрелков: %d\n"+
			"💰 Стоимость: %.0f ₽",
		draft.RangeName,
		draft.DateDisplay,
		weekdayRu(draft.Weekday),
		draft.SlotDisplay,
		draft.ShooterCount,
		draft.TotalPrice,
	)
}

func formatBookingConfirmed(booking *models.Booking) string {
	return fmt.Sprintf(
		"✅ *Запись подтверждена!*\n\n"+
			"Код брони: `%s`\n\n"+
			"🎯 Тир: %s\n"+
			"📅 Дата: %s\n"+
			"🕐 Время: %s\n"+
			"👥 Стрелков: %d\n"+
			"💰 К оплате на месте: %.0f ₽\n\n"+
			"Покажите код администратору при визите.",
		booking.Code,
		booking.RangeName,
		booking.Date.Format("02.01.2006"),
		booking.SlotDisplay,
		booking.ShooterCount,
		booking.TotalPrice,
	)
}

var weekdaysRu = map[string]string{
	"Monday":    "понедельник",
	"Tuesday":   "вторник",
	"Wednesday": "среда",
	"Thursday":  "четверг",
	"Friday":    "пятница",
	"Saturday":  "суббота",
	"Sunday":    "воскресенье",
}

func weekdayRu(weekday string) string {
	if ru, ok := weekdaysRu[weekday]; ok {
		return ru
	}
	return weekday
}

var monthsRu = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}
