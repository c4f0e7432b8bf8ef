package config

import (
	"os"
	"path/filepath"
	"testing"

	"rangebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("DefaultsApplied", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
database:
  path: data/test.db
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.API.HTTP.Port)
		assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
		assert.Equal(t, 30, cfg.Bot.MaxBookingDays)
		assert.Equal(t, models.RateLimitMessages, cfg.Bot.RateLimitMessages)
		assert.Equal(t, "exports", cfg.Exports.Path)
	})

	t.Run("EnvExpansion", func(t *testing.T) {
		t.Setenv("TEST_BOT_TOKEN", "999:secret")
		path := writeConfig(t, `
telegram:
  bot_token: ${TEST_BOT_TOKEN}
database:
  path: data/test.db
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "999:secret", cfg.Telegram.BotToken)
	})

	t.Run("MissingToken", func(t *testing.T) {
		path := writeConfig(t, `
database:
  path: data/test.db
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("PlaceholderToken", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: YOUR_BOT_TOKEN_HERE
database:
  path: data/test.db
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingDatabasePath", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateRanges(t *testing.T) {
	valid := models.Range{
		ID:   "pistol-25",
		Name: "Пистолетный тир",
		OpeningHours: map[string]models.OpeningHours{
			"Monday": {Start: "09:00", End: "13:00"},
		},
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateRanges([]models.Range{valid}))
	})

	t.Run("EmptyID", func(t *testing.T) {
		bad := valid
		bad.ID = ""
		assert.Error(t, ValidateRanges([]models.Range{bad}))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		assert.Error(t, ValidateRanges([]models.Range{valid, valid}))
	})

	t.Run("BadHoursFormat", func(t *testing.T) {
		bad := valid
		bad.OpeningHours = map[string]models.OpeningHours{
			"Monday": {Start: "9:00", End: "13:00"},
		}
		assert.Error(t, ValidateRanges([]models.Range{bad}))
	})

	t.Run("ClosedDayAllowed", func(t *testing.T) {
		ok := valid
		ok.OpeningHours = map[string]models.OpeningHours{
			"Monday": {},
		}
		assert.NoError(t, ValidateRanges([]models.Range{ok}))
	})
}
