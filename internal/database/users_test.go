package database

import (
	"context"
	"testing"

	"rangebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	user := &models.User{
		TelegramID: 42,
		Username:   "ivan",
		FirstName:  "Иван",
		LastName:   "Петров",
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		require.NoError(t, db.CreateOrUpdateUser(ctx, user))

		got, err := db.GetUserByTelegramID(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "ivan", got.Username)
		assert.Equal(t, "Иван Петров", got.DisplayName())
	})

	t.Run("UpsertPreservesPhone", func(t *testing.T) {
		require.NoError(t, db.UpdateUserPhone(ctx, 42, "+79000000000"))

		// повторный апдейт профиля не затирает телефон
		updated := &models.User{TelegramID: 42, Username: "ivan_new", FirstName: "Иван"}
		require.NoError(t, db.CreateOrUpdateUser(ctx, updated))

		got, err := db.GetUserByTelegramID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "ivan_new", got.Username)
		assert.Equal(t, "+79000000000", got.Phone)
	})

	t.Run("UnknownUserIsNil", func(t *testing.T) {
		got, err := db.GetUserByTelegramID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ManagerFlag", func(t *testing.T) {
		manager := &models.User{TelegramID: 77, FirstName: "Админ", IsManager: true}
		require.NoError(t, db.CreateOrUpdateUser(ctx, manager))

		managers, err := db.GetUsersByManagerStatus(ctx, true)
		require.NoError(t, err)
		require.Len(t, managers, 1)
		assert.Equal(t, int64(77), managers[0].TelegramID)
	})

	t.Run("GetAllUsers", func(t *testing.T) {
		users, err := db.GetAllUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("ActivityTracking", func(t *testing.T) {
		require.NoError(t, db.UpdateUserActivity(ctx, 42))

		active, err := db.GetActiveUsers(ctx, 1)
		require.NoError(t, err)
		require.NotEmpty(t, active)
	})
}
