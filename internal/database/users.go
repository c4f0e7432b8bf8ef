package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rangebook/internal/models"
)

const userColumns = `id, telegram_id, username, first_name, last_name, phone,
    is_manager, is_blacklisted, language_code, last_activity, created_at, updated_at`

// CreateOrUpdateUser обновляет профиль по telegram_id, сохраняя телефон и флаги.
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.LastActivity = now
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	_, err := db.ExecContext(ctx, `
        INSERT INTO users (telegram_id, username, first_name, last_name, phone,
            is_manager, is_blacklisted, language_code, last_activity, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(telegram_id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            language_code = excluded.language_code,
            last_activity = excluded.last_activity,
            updated_at = excluded.updated_at`,
		user.TelegramID, user.Username, user.FirstName, user.LastName, user.Phone,
		user.IsManager, user.IsBlacklisted, user.LanguageCode,
		user.LastActivity, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	return scanUser(row)
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (db *DB) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	now := time.Now()
	_, err := db.ExecContext(ctx,
		`UPDATE users SET last_activity = ?, updated_at = ? WHERE telegram_id = ?`,
		now, now, telegramID)
	if err != nil {
		return fmt.Errorf("failed to update user activity: %w", err)
	}
	return nil
}

func (db *DB) UpdateUserPhone(ctx context.Context, telegramID int64, phone string) error {
	now := time.Now()
	_, err := db.ExecContext(ctx,
		`UPDATE users SET phone = ?, updated_at = ? WHERE telegram_id = ?`,
		phone, now, telegramID)
	if err != nil {
		return fmt.Errorf("failed to update user phone: %w", err)
	}
	return nil
}

// GetActiveUsers возвращает пользователей с активностью за последние N дней.
func (db *DB) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE last_activity >= ? ORDER BY last_activity DESC`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (db *DB) GetUsersByManagerStatus(ctx context.Context, isManager bool) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_manager = ? ORDER BY created_at`,
		isManager)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by manager status: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Phone,
		&u.IsManager, &u.IsBlacklisted, &u.LanguageCode,
		&u.LastActivity, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
