package repository

import (
	"context"
	"testing"
	"time"

	"rangebook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailoverStateRepository(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		_, primary := newMiniredisRepo(t)
		fallback := NewMemoryStateRepository(time.Hour)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		state := &models.UserState{UserID: 42, CurrentStep: models.StateSelectSlot}
		require.NoError(t, repo.SetState(ctx, state))

		got, err := repo.GetState(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StateSelectSlot, got.CurrentStep)

		// fallback не использовался
		inFallback, err := fallback.GetState(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, inFallback)
	})

	t.Run("FallsBackWhenPrimaryDies", func(t *testing.T) {
		s, err := miniredis.Run()
		require.NoError(t, err)

		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { client.Close() })

		primary := NewRedisStateRepository(client, time.Hour)
		fallback := NewMemoryStateRepository(time.Hour)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		s.Close() // primary падает

		state := &models.UserState{UserID: 42, CurrentStep: models.StatePayment}
		require.NoError(t, repo.SetState(ctx, state))

		got, err := repo.GetState(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StatePayment, got.CurrentStep)

		// пока не прошел интервал восстановления, primary не трогается
		ok, err := repo.CheckRateLimit(ctx, 42, 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ClearStateFallsBack", func(t *testing.T) {
		failing := NewRedisStateRepository(nil, time.Hour) // всегда ошибка
		fallback := NewMemoryStateRepository(time.Hour)
		repo := NewFailoverStateRepository(failing, fallback, &logger)

		require.NoError(t, fallback.SetState(ctx, &models.UserState{UserID: 9}))
		require.NoError(t, repo.ClearState(ctx, 9))

		got, err := fallback.GetState(ctx, 9)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
