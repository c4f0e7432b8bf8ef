package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rangebook/internal/models"
)

// GenerateSlots derives the bookable one-hour slots for a date from that
// weekday's opening hours. The function is pure: identical inputs produce
// identical output and nothing is mutated.
//
// Slots tile [open, close) in 60-minute steps; a trailing period shorter than
// a full hour is dropped. When date is the same day as now, slots whose start
// is not strictly after now are removed; future dates are never filtered by
// time of day.
func GenerateSlots(date time.Time, hours *models.OpeningHours, now time.Time) []models.Slot {
	if hours == nil || hours.IsZero() {
		return nil
	}

	open, err := parseClock(hours.Start)
	if err != nil {
		return nil
	}
	closeAt, err := parseClock(hours.End)
	if err != nil {
		return nil
	}
	if closeAt <= open {
		return nil
	}

	sameDay := date.Year() == now.Year() && date.YearDay() == now.YearDay()
	nowMinutes := now.Hour()*60 + now.Minute()

	var slots []models.Slot
	for t := open; t+models.SlotDurationMinutes <= closeAt; t += models.SlotDurationMinutes {
		if sameDay && t <= nowMinutes {
			continue
		}
		end := t + models.SlotDurationMinutes
		slots = append(slots, models.Slot{
			ID:        fmt.Sprintf("%s-%s", format24(t), format24(end)),
			StartTime: format24(t),
			EndTime:   format24(end),
			Display:   fmt.Sprintf("%s - %s", format12(t), format12(end)),
		})
	}
	return slots
}

// OpenHours returns the whole number of open hours for a day, 0 when closed.
func OpenHours(hours *models.OpeningHours) int {
	if hours == nil || hours.IsZero() {
		return 0
	}
	open, err := parseClock(hours.Start)
	if err != nil {
		return 0
	}
	closeAt, err := parseClock(hours.End)
	if err != nil {
		return 0
	}
	if closeAt <= open {
		return 0
	}
	return (closeAt - open) / 60
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", value, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", value, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return h*60 + m, nil
}

func format24(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// format12 renders minutes-since-midnight as "H:MM AM/PM". Midnight maps to
// 12, hours past noon subtract 12.
func format12(minutes int) string {
	h := minutes / 60
	m := minutes % 60

	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}

	display := h
	if display == 0 {
		display = 12
	} else if display > 12 {
		display -= 12
	}

	return fmt.Sprintf("%d:%02d %s", display, m, suffix)
}
