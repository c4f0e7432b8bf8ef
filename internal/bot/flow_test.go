package bot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/models"
	"rangebook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlowTestBot(t *testing.T) *Bot {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot_test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetRanges([]models.Range{{
		ID:                 "pistol-25",
		Name:               "Пистолетный тир",
		PricePerHour:       "2500",
		MaxBookingsPerSlot: 5,
		IsActive:           true,
	}})

	return &Bot{
		bookings: service.NewBookingService(db, nil, nil, domain.SystemClock{}, 30, &logger),
		logger:   &logger,
		flows:    make(map[int64]*service.PaymentFlow),
	}
}

func flowTestDraft(userID int64) *models.BookingDraft {
	return &models.BookingDraft{
		RangeID:      "pistol-25",
		RangeName:    "Пистолетный тир",
		UserID:       userID,
		UserName:     "Иван Петров",
		Date:         time.Now().AddDate(0, 0, 1),
		SlotID:       "10:00-11:00",
		SlotDisplay:  "10:00 AM - 11:00 AM",
		ShooterCount: 2,
		PricePerHour: "2500",
		TotalPrice:   5000,
	}
}

// Пока показывается экран успеха, завершенный цикл еще висит в карте.
// Новая запись должна получить свежий цикл, а не упереться в старый.
func TestNewBookingAfterSuccessWindow(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	b := newFlowTestBot(t)

	const userID int64 = 7

	done := service.NewPaymentFlow(b.bookings, &logger)
	require.NoError(t, done.Begin(flowTestDraft(userID)))
	require.NoError(t, done.SelectMethod(models.PaymentMethodCash))
	_, err := done.Confirm(ctx)
	require.NoError(t, err)
	require.Equal(t, service.FlowSucceeded, done.State())
	b.flows[userID] = done

	// завершенный цикл не отменить и не переиспользовать
	require.Error(t, done.Cancel())
	require.Error(t, done.Begin(flowTestDraft(userID)))

	b.resetFlow(userID)
	flow := b.paymentFlow(userID)
	require.NotSame(t, done, flow)

	next := flowTestDraft(userID)
	next.SlotID = "11:00-12:00"
	assert.NoError(t, flow.Begin(next))
	assert.Equal(t, service.FlowAwaitingMethod, flow.State())
}
