package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"rangebook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// handleStats показывает менеджеру сводные цифры за последние 30 дней.
func (b *Bot) handleStats(ctx context.Context, userID int64) {
	now := time.Now()
	start := now.AddDate(0, 0, -30)

	bookings, err := b.bookings.GetBookingsByDateRange(ctx, start, now)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось собрать статистику")
		b.sendMessage(userID, "Не удалось собрать статистику.")
		return
	}

	var totalShooters int64
	var totalRevenue float64
	byRange := make(map[string]int)
	active := 0

	for _, booking := range bookings {
		if booking.Status == models.StatusCancelled {
			continue
		}
		active++
		totalShooters += booking.ShooterCount
		totalRevenue += booking.TotalPrice
		byRange[booking.RangeName]++
	}

	var sb strings.Builder
	sb.WriteString("📈 *Статистика за 30 дней:*\n\n")
	sb.WriteString(fmt.Sprintf("Записей: %d\n", active))
	sb.WriteString(fmt.Sprintf("Стрелков: %d\n", totalShooters))
	sb.WriteString(fmt.Sprintf("Выручка: %.0f ₽\n", totalRevenue))

	if len(byRange) > 0 {
		sb.WriteString("\n*По тирам:*\n")
		names := make([]string, 0, len(byRange))
		for name := range byRange {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("• %s: %d\n", name, byRange[name]))
		}
	}

	b.sendMarkdown(userID, sb.String())
}

// handleDailySummary показывает записи на сегодня и завтра по дням.
func (b *Bot) handleDailySummary(ctx context.Context, userID int64) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	daily, err := b.bookings.GetDailyBookings(ctx, today, today.AddDate(0, 0, 2))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось собрать сводку")
		b.sendMessage(userID, "Не удалось собрать сводку.")
		return
	}

	days := []struct {
		label string
		key   string
	}{
		{"Сегодня", today.Format("2006-01-02")},
		{"Завтра", today.AddDate(0, 0, 1).Format("2006-01-02")},
	}

	var sb strings.Builder
	sb.WriteString("📋 *Сводка по записям:*\n")

	for _, day := range days {
		bookings := daily[day.key]
		sb.WriteString(fmt.Sprintf("\n*%s (%s):*\n", day.label, day.key))
		if len(bookings) == 0 {
			sb.WriteString("— записей нет\n")
			continue
		}
		for _, booking := range bookings {
			if booking.Status == models.StatusCancelled {
				continue
			}
			sb.WriteString(fmt.Sprintf("• %s %s — %s, %d чел.\n",
				booking.SlotDisplay, booking.RangeName, booking.UserName, booking.ShooterCount))
		}
	}

	b.sendMarkdown(userID, sb.String())
}

// handleExport собирает Excel-файл с записями на ближайшие две недели и
// отправляет его менеджеру документом.
func (b *Bot) handleExport(ctx context.Context, userID int64) {
	b.sendMessage(userID, "Готовлю выгрузку...")

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, exportDays)

	bookings, err := b.bookings.GetBookingsByDateRange(ctx, today, end)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось собрать записи для выгрузки")
		b.sendMessage(userID, "Не удалось собрать данные для выгрузки.")
		return
	}

	filePath, err := b.exportBookingsToExcel(today, end, bookings)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось собрать Excel")
		b.sendMessage(userID, "Не удалось сформировать файл выгрузки.")
		return
	}

	doc := tgbotapi.NewDocument(userID, tgbotapi.FilePath(filePath))
	doc.Caption = fmt.Sprintf("Записи с %s по %s", today.Format("02.01"), end.Format("02.01.2006"))
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Не удалось отправить выгрузку")
		b.sendMessage(userID, "Файл готов, но отправить его не удалось.")
	}
}
