package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rangebook/internal/models"
	"rangebook/internal/schedule"

	"github.com/xuri/excelize/v2"
)

const exportDays = 14

const (
	sheetBookings = "Записи"
	sheetGrid     = "Сетка"
)

// exportBookingsToExcel пишет две вкладки: плоский список записей и сетку
// занятости тиров по датам. Возвращает путь к файлу.
func (b *Bot) exportBookingsToExcel(start, end time.Time, bookings []*models.Booking) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetBookings)
	if _, err := f.NewSheet(sheetGrid); err != nil {
		return "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return "", err
	}
	rangeStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	})
	fullStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	partialStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFEB9C"}, Pattern: 1},
	})
	freeStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	})

	if err := b.writeBookingsSheet(f, headerStyle, bookings); err != nil {
		return "", err
	}
	if err := b.writeGridSheet(f, start, end, bookings, gridStyles{
		header:  headerStyle,
		rng:     rangeStyle,
		full:    fullStyle,
		partial: partialStyle,
		free:    freeStyle,
	}); err != nil {
		return "", err
	}

	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(b.config.Exports.Path,
		fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02_15-04")))
	if err := f.SaveAs(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}

func (b *Bot) writeBookingsSheet(f *excelize.File, headerStyle int, bookings []*models.Booking) error {
	headers := []string{"Код", "Тир", "Дата", "Время", "Клиент", "Телефон", "Стрелки", "Сумма", "Оплата", "Статус"}
	for col, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetBookings, cell, title); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetBookings, "A1", lastHeader, headerStyle)

	row := 2
	for _, booking := range bookings {
		values := []interface{}{
			booking.Code,
			booking.RangeName,
			booking.Date.Format("02.01.2006"),
			booking.SlotDisplay,
			booking.UserName,
			booking.Phone,
			booking.ShooterCount,
			booking.TotalPrice,
			paymentMethodRu(booking.PaymentMethod),
			statusRu(booking.Status),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetBookings, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	_ = f.SetColWidth(sheetBookings, "A", "A", 22)
	_ = f.SetColWidth(sheetBookings, "B", "F", 18)
	return nil
}

type gridStyles struct {
	header  int
	rng     int
	full    int
	partial int
	free    int
}

// writeGridSheet рисует занятость: колонки — даты, строки — слоты каждого
// тира. Цвет ячейки показывает заполненность слота.
func (b *Bot) writeGridSheet(f *excelize.File, start, end time.Time, bookings []*models.Booking, styles gridStyles) error {
	// booked[date][rangeID][slotID] = суммарно стрелков
	booked := make(map[string]map[string]map[string]int64)
	for _, booking := range bookings {
		if booking.Status == models.StatusCancelled {
			continue
		}
		day := booking.Date.Format("2006-01-02")
		if booked[day] == nil {
			booked[day] = make(map[string]map[string]int64)
		}
		if booked[day][booking.RangeID] == nil {
			booked[day][booking.RangeID] = make(map[string]int64)
		}
		booked[day][booking.RangeID][booking.SlotID] += booking.ShooterCount
	}

	var dates []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	// заголовки дат со второй колонки
	for i, d := range dates {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		if err := f.SetCellValue(sheetGrid, cell, d.Format("02.01")+" "+shortWeekdayRu(d.Weekday())); err != nil {
			return err
		}
	}
	lastDateCell, _ := excelize.CoordinatesToCellName(len(dates)+1, 1)
	_ = f.SetCellStyle(sheetGrid, "A1", lastDateCell, styles.header)

	row := 2
	for _, rng := range b.bookings.GetRanges() {
		titleCell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheetGrid, titleCell, rng.Name); err != nil {
			return err
		}
		titleEnd, _ := excelize.CoordinatesToCellName(len(dates)+1, row)
		_ = f.SetCellStyle(sheetGrid, titleCell, titleEnd, styles.rng)
		row++

		for _, slotID := range rangeSlotIDs(&rng, dates) {
			labelCell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellValue(sheetGrid, labelCell, slotID); err != nil {
				return err
			}

			for i, d := range dates {
				if !slotOpenOn(&rng, d, slotID) {
					continue
				}
				day := d.Format("2006-01-02")
				count := booked[day][rng.ID][slotID]
				capacity := rng.Capacity()

				cell, _ := excelize.CoordinatesToCellName(i+2, row)
				if err := f.SetCellValue(sheetGrid, cell, fmt.Sprintf("%d/%d", count, capacity)); err != nil {
					return err
				}
				style := styles.free
				switch {
				case count >= capacity:
					style = styles.full
				case count > 0:
					style = styles.partial
				}
				_ = f.SetCellStyle(sheetGrid, cell, cell, style)
			}
			row++
		}
		row++ // пустая строка между тирами
	}

	_ = f.SetColWidth(sheetGrid, "A", "A", 14)
	return nil
}

// rangeSlotIDs возвращает объединение идентификаторов слотов тира за период,
// отсортированное по времени начала.
func rangeSlotIDs(rng *models.Range, dates []time.Time) []string {
	seen := make(map[string]bool)
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range dates {
		hours := rng.HoursFor(d.Weekday().String())
		for _, slot := range schedule.GenerateSlots(d, hours, past) {
			seen[slot.ID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func slotOpenOn(rng *models.Range, date time.Time, slotID string) bool {
	hours := rng.HoursFor(date.Weekday().String())
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, slot := range schedule.GenerateSlots(date, hours, past) {
		if slot.ID == slotID {
			return true
		}
	}
	return false
}

func shortWeekdayRu(wd time.Weekday) string {
	short := [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	return short[wd]
}

func paymentMethodRu(method string) string {
	switch method {
	case models.PaymentMethodCash:
		return "наличные"
	case models.PaymentMethodCard:
		return "карта"
	case models.PaymentMethodOnline:
		return "онлайн"
	default:
		return method
	}
}

func statusRu(status string) string {
	switch status {
	case models.StatusConfirmed:
		return "подтверждена"
	case models.StatusCancelled:
		return "отменена"
	default:
		return status
	}
}
