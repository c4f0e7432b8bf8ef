package bot

import (
	"context"
	"fmt"
	"strings"

	"rangebook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	if message.Contact != nil {
		b.handleContact(ctx, message)
		return
	}

	text := strings.TrimSpace(message.Text)
	lower := strings.ToLower(text)

	switch {
	case message.IsCommand() && message.Command() == "start":
		b.handleStart(ctx, message)
	case lower == "сброс" || lower == "reset":
		b.resetFlow(userID)
		b.clearUserState(ctx, userID)
		b.sendMessage(userID, "Состояние сброшено.")
		b.handleMainMenu(userID)
	case text == "🎯 Записаться":
		b.handleBookingStart(ctx, userID)
	case text == "📊 Мои записи":
		b.handleMyBookings(ctx, userID)
	case text == "📞 Контакты":
		b.handleContacts(userID)
	case text == "📈 Статистика" && b.users.IsManager(userID):
		b.handleStats(ctx, userID)
	case text == "📋 Сводка" && b.users.IsManager(userID):
		b.handleDailySummary(ctx, userID)
	case text == "📥 Выгрузка" && b.users.IsManager(userID):
		b.handleExport(ctx, userID)
	default:
		state := b.getUserState(ctx, userID)
		if state.CurrentStep != models.StateMainMenu {
			b.sendMessage(userID, "Пожалуйста, используйте кнопки под сообщением. Сброс: /start")
			return
		}
		b.handleMainMenu(userID)
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	b.resetFlow(userID)
	b.clearUserState(ctx, userID)

	name := message.From.FirstName
	if name == "" {
		name = "стрелок"
	}
	b.sendMessage(userID, fmt.Sprintf("Здравствуйте, %s! 👋\nЗдесь можно записаться на стрельбу в наши тиры.", name))
	b.handleMainMenu(userID)
}

// handleBookingStart открывает мастер записи со списка тиров.
func (b *Bot) handleBookingStart(ctx context.Context, userID int64) {
	ranges := b.bookings.GetRanges()
	if len(ranges) == 0 {
		b.sendMessage(userID, "Сейчас нет доступных тиров. Попробуйте позже.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, rng := range ranges {
		label := fmt.Sprintf("%s — %s ₽/час", rng.Name, rng.PricePerHour)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "select_range:"+rng.ID),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	b.setUserState(ctx, userID, models.StateSelectRange, map[string]interface{}{})
	if _, err := b.tg.SendWithInlineKeyboard(userID, "🎯 Выберите тир:", keyboard); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось показать список тиров")
	}
}

func (b *Bot) handleMyBookings(ctx context.Context, userID int64) {
	bookings, err := b.users.GetUserBookings(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Не удалось получить брони")
		b.sendMessage(userID, "Не удалось загрузить ваши записи. Попробуйте позже.")
		return
	}
	if len(bookings) == 0 {
		b.sendMessage(userID, "У вас пока нет записей. Нажмите «🎯 Записаться», чтобы создать первую.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 *Ваши записи:*\n")
	shown := 0
	for _, booking := range bookings {
		if booking.Status == models.StatusCancelled {
			continue
		}
		sb.WriteString(fmt.Sprintf(
			"\n`%s`\n🎯 %s\n📅 %s, %s\n👥 %d чел., %.0f ₽\n",
			booking.Code,
			booking.RangeName,
			booking.Date.Format("02.01.2006"),
			booking.SlotDisplay,
			booking.ShooterCount,
			booking.TotalPrice,
		))
		shown++
		if shown >= 10 {
			break
		}
	}
	if shown == 0 {
		b.sendMessage(userID, "У вас нет активных записей.")
		return
	}
	b.sendMarkdown(userID, sb.String())
}

func (b *Bot) handleContacts(userID int64) {
	if len(b.config.ManagersContacts) == 0 {
		b.sendMessage(userID, "Контакты администраторов пока не указаны.")
		return
	}
	text := "📞 Связаться с нами:\n\n" + strings.Join(b.config.ManagersContacts, "\n")
	b.sendMessage(userID, text)
}

// handleContact сохраняет телефон из вложенного контакта Telegram.
func (b *Bot) handleContact(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	if message.Contact.UserID != userID {
		b.sendMessage(userID, "Пожалуйста, отправьте свой собственный контакт.")
		return
	}

	phone := normalizePhone(message.Contact.PhoneNumber)
	if err := b.users.UpdateUserPhone(ctx, userID, phone); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Не удалось сохранить телефон")
		b.sendMessage(userID, "Не удалось сохранить номер. Попробуйте еще раз.")
		return
	}
	b.sendMessage(userID, "Номер телефона сохранен ✅")
	b.handleMainMenu(userID)
}
