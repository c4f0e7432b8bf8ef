package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rangebook/internal/database"
	"rangebook/internal/models"
	"rangebook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	data := callback.Data

	switch {
	case data == "noop":
		// заглушки календаря
	case strings.HasPrefix(data, "select_range:"):
		b.handleRangeSelected(ctx, callback, strings.TrimPrefix(data, "select_range:"))
	case strings.HasPrefix(data, "cal:"):
		b.handleCalendarNav(ctx, callback, strings.TrimPrefix(data, "cal:"))
	case strings.HasPrefix(data, "date:"):
		b.handleDateSelected(ctx, callback, strings.TrimPrefix(data, "date:"))
	case data == "back_to_dates":
		b.handleBackToDates(ctx, callback)
	case strings.HasPrefix(data, "slot:"):
		b.handleSlotSelected(ctx, callback, strings.TrimPrefix(data, "slot:"))
	case strings.HasPrefix(data, "shooters:"):
		b.handleShootersSelected(ctx, callback, strings.TrimPrefix(data, "shooters:"))
	case strings.HasPrefix(data, "pay:"):
		b.handlePaymentMethod(ctx, callback, strings.TrimPrefix(data, "pay:"))
	case data == "pay_confirm":
		b.handlePaymentConfirm(ctx, callback)
	case data == "pay_retry":
		b.handlePaymentRetry(ctx, callback)
	case data == "pay_cancel", data == "booking_cancel":
		b.handleBookingCancel(ctx, callback)
	default:
		zerolog.Ctx(ctx).Warn().Str("data", data).Int64("user_id", userID).Msg("Неизвестный колбэк")
	}

	// гасим "часики" на кнопке
	if err := b.tg.AnswerCallback(callback.ID, ""); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("answer callback")
	}
}

func (b *Bot) handleRangeSelected(ctx context.Context, callback *tgbotapi.CallbackQuery, rangeID string) {
	userID := callback.From.ID

	rng, err := b.bookings.GetRangeByID(rangeID)
	if err != nil {
		b.editText(callback, "Этот тир больше недоступен. Начните заново: /start")
		return
	}

	b.setUserState(ctx, userID, models.StateSelectDate, map[string]interface{}{
		"range_id": rng.ID,
	})

	now := time.Now()
	keyboard := GenerateCalendarKeyboard(now.Year(), now.Month(), now, b.bookings.MaxBookingDays())
	text := fmt.Sprintf("🎯 %s\n\n📅 Выберите дату:", rng.Name)
	b.editWithKeyboard(callback, text, keyboard)
}

func (b *Bot) handleCalendarNav(ctx context.Context, callback *tgbotapi.CallbackQuery, monthStr string) {
	userID := callback.From.ID

	target, err := time.Parse("2006-01", monthStr)
	if err != nil {
		return
	}

	state := b.getUserState(ctx, userID)
	rng, rngErr := b.bookings.GetRangeByID(state.GetString("range_id"))
	title := "📅 Выберите дату:"
	if rngErr == nil {
		title = fmt.Sprintf("🎯 %s\n\n📅 Выберите дату:", rng.Name)
	}

	keyboard := GenerateCalendarKeyboard(target.Year(), target.Month(), time.Now(), b.bookings.MaxBookingDays())
	b.editWithKeyboard(callback, title, keyboard)
}

func (b *Bot) handleDateSelected(ctx context.Context, callback *tgbotapi.CallbackQuery, dateStr string) {
	userID := callback.From.ID

	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return
	}
	if err := b.bookings.ValidateBookingDate(date); err != nil {
		_ = b.tg.AnswerCallback(callback.ID, "Эта дата недоступна для записи")
		return
	}

	state := b.getUserState(ctx, userID)
	rng, err := b.bookings.GetRangeByID(state.GetString("range_id"))
	if err != nil {
		b.editText(callback, "Тир не найден. Начните заново: /start")
		return
	}

	slots, remaining, err := b.bookings.AvailableSlots(ctx, rng, date, 1)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось загрузить слоты")
		b.editText(callback, "Не удалось загрузить расписание. Попробуйте позже.")
		return
	}
	if len(slots) == 0 {
		_ = b.tg.AnswerCallback(callback.ID, "На эту дату нет свободного времени")
		return
	}

	state.TempData["date"] = dateStr
	b.setUserState(ctx, userID, models.StateSelectSlot, state.TempData)

	text := fmt.Sprintf("🎯 %s\n📅 %s (%s)\n\n🕐 Выберите время:",
		rng.Name, date.Format("02.01.2006"), weekdayRu(date.Weekday().String()))
	b.editWithKeyboard(callback, text, GenerateSlotKeyboard(slots, remaining))
}

func (b *Bot) handleBackToDates(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	state := b.getUserState(ctx, userID)

	rng, err := b.bookings.GetRangeByID(state.GetString("range_id"))
	if err != nil {
		b.editText(callback, "Тир не найден. Начните заново: /start")
		return
	}

	delete(state.TempData, "date")
	delete(state.TempData, "slot_id")
	delete(state.TempData, "slot_display")
	b.setUserState(ctx, userID, models.StateSelectDate, state.TempData)

	now := time.Now()
	keyboard := GenerateCalendarKeyboard(now.Year(), now.Month(), now, b.bookings.MaxBookingDays())
	b.editWithKeyboard(callback, fmt.Sprintf("🎯 %s\n\n📅 Выберите дату:", rng.Name), keyboard)
}

func (b *Bot) handleSlotSelected(ctx context.Context, callback *tgbotapi.CallbackQuery, slotID string) {
	userID := callback.From.ID
	state := b.getUserState(ctx, userID)

	rng, err := b.bookings.GetRangeByID(state.GetString("range_id"))
	if err != nil {
		b.editText(callback, "Тир не найден. Начните заново: /start")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", state.GetString("date"), time.Local)
	if err != nil {
		b.editText(callback, "Дата не выбрана. Начните заново: /start")
		return
	}

	// слот мог занять кто-то другой, пока пользователь думал
	slots, remaining, err := b.bookings.AvailableSlots(ctx, rng, date, 1)
	if err != nil {
		b.editText(callback, "Не удалось проверить слот. Попробуйте позже.")
		return
	}

	var chosen *models.Slot
	for i := range slots {
		if slots[i].ID == slotID {
			chosen = &slots[i]
			break
		}
	}
	if chosen == nil {
		_ = b.tg.AnswerCallback(callback.ID, "Это время уже занято, выберите другое")
		b.editWithKeyboard(callback, "🕐 Выберите время:", GenerateSlotKeyboard(slots, remaining))
		return
	}

	state.TempData["slot_id"] = chosen.ID
	state.TempData["slot_display"] = chosen.Display
	b.setUserState(ctx, userID, models.StateShooterCount, state.TempData)

	maxShooters := rng.Capacity()
	if left, ok := remaining[chosen.ID]; ok && left < maxShooters {
		maxShooters = left
	}

	text := fmt.Sprintf("🕐 %s\n\n👥 Сколько стрелков придет?", chosen.Display)
	b.editWithKeyboard(callback, text, GenerateShooterKeyboard(maxShooters))
}

func (b *Bot) handleShootersSelected(ctx context.Context, callback *tgbotapi.CallbackQuery, countStr string) {
	userID := callback.From.ID

	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		return
	}

	state := b.getUserState(ctx, userID)
	rng, rngErr := b.bookings.GetRangeByID(state.GetString("range_id"))
	if rngErr != nil {
		b.editText(callback, "Тир не найден. Начните заново: /start")
		return
	}

	date, dateErr := time.ParseInLocation("2006-01-02", state.GetString("date"), time.Local)
	if dateErr != nil {
		b.editText(callback, "Дата не выбрана. Начните заново: /start")
		return
	}

	user, userErr := b.users.GetUser(ctx, userID)
	if userErr != nil || user == nil {
		user = &models.User{
			TelegramID: userID,
			Username:   callback.From.UserName,
			FirstName:  callback.From.FirstName,
			LastName:   callback.From.LastName,
		}
	}

	draft, err := b.bookings.ComposeBooking(service.BookingRequest{
		Range: rng,
		User:  user,
		Date:  date,
		Slot: &models.Slot{
			ID:      state.GetString("slot_id"),
			Display: state.GetString("slot_display"),
		},
		ShooterCount: count,
	})
	if err != nil {
		b.editText(callback, composeErrorMessage(err))
		return
	}

	// прошлый цикл оплаты (включая только что завершившийся) не должен
	// блокировать новую запись
	b.resetFlow(userID)
	flow := b.paymentFlow(userID)
	if err := flow.Begin(draft); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось начать оплату")
		b.editText(callback, "Не удалось начать оформление. Попробуйте еще раз: /start")
		return
	}

	b.setUserState(ctx, userID, models.StatePayment, state.TempData)

	text := formatBookingSummary(draft) + "\n\n💳 Выберите способ оплаты:"
	b.editWithKeyboard(callback, text, paymentMethodKeyboard())
}

func (b *Bot) handlePaymentMethod(ctx context.Context, callback *tgbotapi.CallbackQuery, method string) {
	userID := callback.From.ID
	flow := b.paymentFlow(userID)

	if err := flow.SelectMethod(method); err != nil {
		if errors.Is(err, service.ErrPaymentMethodUnavailable) {
			_ = b.tg.AnswerCallback(callback.ID, "Этот способ оплаты пока недоступен. Выберите наличные.")
			return
		}
		b.editText(callback, "Оформление прервано. Начните заново: /start")
		return
	}

	draft := flow.Draft()
	if draft == nil {
		b.editText(callback, "Черновик записи потерян. Начните заново: /start")
		return
	}

	text := formatBookingSummary(draft) + "\n\n💵 Оплата наличными на месте.\nПодтверждаете запись?"
	b.editWithKeyboard(callback, text, confirmKeyboard())
}

func (b *Bot) handlePaymentConfirm(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	flow := b.paymentFlow(userID)

	booking, err := flow.Confirm(ctx)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommitInFlight):
			_ = b.tg.AnswerCallback(callback.ID, "Запись уже обрабатывается, подождите")
		case errors.Is(err, database.ErrSlotUnavailable):
			b.metrics.BookingCommitFailures.WithLabelValues("slot_unavailable").Inc()
			b.editWithKeyboard(callback,
				"😔 Увы, это время только что заняли.\nПопробовать выбрать другое время?",
				retryKeyboard())
		case errors.Is(err, service.ErrInvalidFlowState):
			_ = b.tg.AnswerCallback(callback.ID, "Запись уже оформлена или отменена")
		default:
			b.metrics.BookingCommitFailures.WithLabelValues("storage_error").Inc()
			zerolog.Ctx(ctx).Error().Err(err).Msg("Коммит брони не прошел")
			b.editWithKeyboard(callback,
				"Не удалось сохранить запись. Попробовать еще раз?",
				retryKeyboard())
		}
		return
	}

	b.metrics.BookingsCommitted.WithLabelValues(booking.RangeName).Inc()
	b.editText(callback, formatBookingConfirmed(booking))

	b.notifyManagers(fmt.Sprintf(
		"🔔 *Новая запись* `%s`\n🎯 %s\n📅 %s, %s\n👤 %s\n👥 %d чел., %.0f ₽",
		booking.Code, booking.RangeName,
		booking.Date.Format("02.01.2006"), booking.SlotDisplay,
		booking.UserName, booking.ShooterCount, booking.TotalPrice,
	))
}

func (b *Bot) handlePaymentRetry(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	flow := b.paymentFlow(userID)

	if err := flow.Retry(); err != nil {
		b.editText(callback, "Повторить не получилось. Начните заново: /start")
		return
	}

	draft := flow.Draft()
	if draft == nil {
		b.editText(callback, "Черновик записи потерян. Начните заново: /start")
		return
	}
	text := formatBookingSummary(draft) + "\n\n💳 Выберите способ оплаты:"
	b.editWithKeyboard(callback, text, paymentMethodKeyboard())
}

func (b *Bot) handleBookingCancel(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID

	flow := b.paymentFlow(userID)
	if err := flow.Cancel(); err != nil {
		// коммит уже идет, отменять поздно
		_ = b.tg.AnswerCallback(callback.ID, "Запись уже обрабатывается")
		return
	}
	b.resetFlow(userID)
	b.clearUserState(ctx, userID)

	b.editText(callback, "Запись отменена.")
	b.handleMainMenu(userID)
}

func composeErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return "Не удалось вас опознать. Нажмите /start и попробуйте снова."
	case errors.Is(err, service.ErrMissingDate):
		return "Дата не выбрана или недоступна. Начните заново: /start"
	case errors.Is(err, service.ErrMissingSlot):
		return "Время не выбрано. Начните заново: /start"
	case errors.Is(err, service.ErrInvalidShooterCount):
		return "Недопустимое количество стрелков для этого тира."
	case errors.Is(err, service.ErrRangeUnavailable):
		return "Тир не работает в выбранный день. Выберите другую дату."
	default:
		return "Не удалось оформить запись. Попробуйте еще раз: /start"
	}
}

func paymentMethodKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💵 Наличные", "pay:cash"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Карта", "pay:card"),
			tgbotapi.NewInlineKeyboardButtonData("🌐 Онлайн", "pay:online"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "pay_cancel"),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", "pay_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "pay_cancel"),
		),
	)
}

func retryKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Попробовать снова", "pay_retry"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "pay_cancel"),
		),
	)
}

func (b *Bot) editText(callback *tgbotapi.CallbackQuery, text string) {
	if callback.Message == nil {
		return
	}
	if _, err := b.tg.EditMessage(callback.Message.Chat.ID, callback.Message.MessageID, text, nil); err != nil {
		b.logger.Debug().Err(err).Msg("edit message")
	}
}

func (b *Bot) editWithKeyboard(callback *tgbotapi.CallbackQuery, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if callback.Message == nil {
		return
	}
	if _, err := b.tg.EditMessage(callback.Message.Chat.ID, callback.Message.MessageID, text, &keyboard); err != nil {
		b.logger.Debug().Err(err).Msg("edit message")
	}
}
