package bot

import (
	"fmt"
	"time"

	"rangebook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// GenerateCalendarKeyboard строит инлайн-календарь месяца. Прошедшие дни и
// дни за горизонтом бронирования показываются как неактивные точки.
// Навигация между месяцами идет через колбэки cal:YYYY-MM.
func GenerateCalendarKeyboard(year int, month time.Month, now time.Time, maxDays int) tgbotapi.InlineKeyboardMarkup {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	horizon := today.AddDate(0, 0, maxDays)

	var rows [][]tgbotapi.InlineKeyboardButton

	header := fmt.Sprintf("%s %d", monthsRu[month-1], year)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(header, "noop"),
	))

	weekdays := []string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}
	var weekdayRow []tgbotapi.InlineKeyboardButton
	for _, wd := range weekdays {
		weekdayRow = append(weekdayRow, tgbotapi.NewInlineKeyboardButtonData(wd, "noop"))
	}
	rows = append(rows, weekdayRow)

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	daysInMonth := firstDay.AddDate(0, 1, -1).Day()

	// понедельник — первый день недели
	offset := int(firstDay.Weekday()+6) % 7

	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < offset; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
	}

	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		if date.Before(today) || date.After(horizon) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", "noop"))
		} else {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d", day),
				"date:"+date.Format("2006-01-02"),
			))
		}
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
		}
		rows = append(rows, row)
	}

	// стрелки навигации, только в пределах горизонта
	var nav []tgbotapi.InlineKeyboardButton
	prev := firstDay.AddDate(0, -1, 0)
	next := firstDay.AddDate(0, 1, 0)
	if !prev.AddDate(0, 1, -1).Before(today) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", "cal:"+prev.Format("2006-01")))
	}
	if !next.After(horizon) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", "cal:"+next.Format("2006-01")))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "booking_cancel"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// GenerateSlotKeyboard строит клавиатуру свободных слотов с остатком мест.
func GenerateSlotKeyboard(slots []models.Slot, remaining map[string]int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		label := slot.Display
		if left, ok := remaining[slot.ID]; ok {
			label = fmt.Sprintf("%s (свободно: %d)", slot.Display, left)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "slot:"+slot.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад к датам", "back_to_dates"),
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "booking_cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// GenerateShooterKeyboard предлагает выбрать число стрелков от 1 до capacity.
func GenerateShooterKeyboard(capacity int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for n := int64(1); n <= capacity; n++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", n),
			fmt.Sprintf("shooters:%d", n),
		))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "booking_cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
