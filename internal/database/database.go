package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"rangebook/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	mu           sync.RWMutex
	rangesCache  map[string]models.Range
	sortedRanges []models.Range
	logger       *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("База данных инициализирована")
	}
	return &DB{DB: db, rangesCache: make(map[string]models.Range), logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица пользователей
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            telegram_id INTEGER UNIQUE NOT NULL,
            username TEXT,
            first_name TEXT NOT NULL,
            last_name TEXT,
            phone TEXT,
            is_manager BOOLEAN NOT NULL DEFAULT 0,
            is_blacklisted BOOLEAN NOT NULL DEFAULT 0,
            language_code TEXT,
            last_activity DATETIME NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Таблица бронирований
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT UNIQUE NOT NULL,
            range_id TEXT NOT NULL,
            range_name TEXT NOT NULL,
            user_id INTEGER NOT NULL,
            user_name TEXT NOT NULL,
            user_nickname TEXT,
            phone TEXT,
            date DATETIME NOT NULL,
            slot_id TEXT NOT NULL,
            slot_display TEXT NOT NULL,
            shooter_count INTEGER NOT NULL,
            price_per_hour TEXT NOT NULL,
            total_price REAL NOT NULL,
            payment_method TEXT NOT NULL,
            payment_status TEXT NOT NULL DEFAULT 'pending',
            status TEXT NOT NULL DEFAULT 'confirmed',
            visited BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Очередь синхронизации с Google Sheets
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id INTEGER NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_users_telegram_id ON users(telegram_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_manager ON users(is_manager)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_range_slot ON bookings(range_id, date, slot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetRanges устанавливает справочник тиров для проверки вместимости слотов.
func (db *DB) SetRanges(ranges []models.Range) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.rangesCache = make(map[string]models.Range, len(ranges))
	active := make([]models.Range, 0, len(ranges))
	for _, rng := range ranges {
		db.rangesCache[rng.ID] = rng
		if rng.IsActive {
			active = append(active, rng)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].SortOrder == active[j].SortOrder {
			return active[i].ID < active[j].ID
		}
		return active[i].SortOrder < active[j].SortOrder
	})
	db.sortedRanges = active
}

// GetRanges returns active ranges in display order.
func (db *DB) GetRanges() []models.Range {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]models.Range, len(db.sortedRanges))
	copy(out, db.sortedRanges)
	return out
}

func (db *DB) GetRangeByID(id string) (*models.Range, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rng, ok := db.rangesCache[id]
	if !ok {
		return nil, ErrRangeNotFound
	}
	return &rng, nil
}
