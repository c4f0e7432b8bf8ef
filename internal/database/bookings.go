package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rangebook/internal/models"
)

const bookingColumns = `id, code, range_id, range_name, user_id, user_name, user_nickname, phone,
    date, slot_id, slot_display, shooter_count, price_per_hour, total_price,
    payment_method, payment_status, status, visited, created_at, updated_at`

// CommitBookingWithLock вставляет бронь, проверяя вместимость слота внутри
// транзакции. Сумма стрелков по живым броням (range_id, date, slot_id) не
// должна превысить вместимость тира.
func (db *DB) CommitBookingWithLock(ctx context.Context, booking *models.Booking) error {
	rng, err := db.GetRangeByID(booking.RangeID)
	if err != nil {
		return err
	}
	capacity := rng.Capacity()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Используем date() для нормализации даты в SQLite: дата брони хранится
	// и сравнивается как календарный день, без часового пояса.
	var booked int64
	err = tx.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(shooter_count), 0)
        FROM bookings
        WHERE range_id = ? AND date(date) = ? AND slot_id = ? AND status != ?`,
		booking.RangeID, booking.Date.Format("2006-01-02"), booking.SlotID, models.StatusCancelled,
	).Scan(&booked)
	if err != nil {
		return fmt.Errorf("failed to count slot bookings: %w", err)
	}

	if booked+booking.ShooterCount > capacity {
		return ErrSlotUnavailable
	}

	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	result, err := tx.ExecContext(ctx, `
        INSERT INTO bookings (code, range_id, range_name, user_id, user_name, user_nickname, phone,
            date, slot_id, slot_display, shooter_count, price_per_hour, total_price,
            payment_method, payment_status, status, visited, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.Code, booking.RangeID, booking.RangeName, booking.UserID,
		booking.UserName, booking.UserNickname, booking.Phone,
		booking.Date.Format("2006-01-02"), booking.SlotID, booking.SlotDisplay, booking.ShooterCount,
		booking.PricePerHour, booking.TotalPrice,
		booking.PaymentMethod, booking.PaymentStatus, booking.Status, booking.Visited,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get booking id: %w", err)
	}
	booking.ID = id

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if db.logger != nil {
		db.logger.Info().
			Int64("booking_id", booking.ID).
			Str("code", booking.Code).
			Str("range_id", booking.RangeID).
			Str("slot_id", booking.SlotID).
			Msg("Бронь сохранена")
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

func (db *DB) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE code = ?`, code)
	return scanBooking(row)
}

// GetUserBookings возвращает брони пользователя, новые первыми.
func (db *DB) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY date DESC, slot_id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE date(date) >= ? AND date(date) <= ? ORDER BY date, range_id, slot_id`,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings by date range: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// GetDailyBookings группирует брони по дате (YYYY-MM-DD) для сводки менеджера.
func (db *DB) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		key := b.Date.Format("2006-01-02")
		daily[key] = append(daily[key], b)
	}
	return daily, nil
}

// GetSlotBookedCounts возвращает занятость слотов тира на дату: slot_id -> сумма стрелков.
// Отменённые брони не считаются.
func (db *DB) GetSlotBookedCounts(ctx context.Context, rangeID string, date time.Time) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT slot_id, COALESCE(SUM(shooter_count), 0)
        FROM bookings
        WHERE range_id = ? AND date(date) = ? AND status != ?
        GROUP BY slot_id`,
		rangeID, date.Format("2006-01-02"), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var slotID string
		var booked int64
		if err := rows.Scan(&slotID, &booked); err != nil {
			return nil, fmt.Errorf("failed to scan slot count: %w", err)
		}
		counts[slotID] = booked
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.Code, &b.RangeID, &b.RangeName, &b.UserID,
		&b.UserName, &b.UserNickname, &b.Phone,
		&b.Date, &b.SlotID, &b.SlotDisplay, &b.ShooterCount,
		&b.PricePerHour, &b.TotalPrice,
		&b.PaymentMethod, &b.PaymentStatus, &b.Status, &b.Visited,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
