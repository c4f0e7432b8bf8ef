package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft() *models.BookingDraft {
	return &models.BookingDraft{
		RangeID:      "pistol-25",
		RangeName:    "Пистолетный тир",
		UserID:       42,
		UserName:     "Иван Петров",
		PricePerHour: "2500",
		ShooterCount: 3,
		SlotID:       "09:00-10:00",
		SlotDisplay:  "9:00 AM - 10:00 AM",
		Date:         time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DateDisplay:  "10.03.2025",
		Weekday:      "Monday",
		TotalPrice:   7500,
	}
}

func newTestFlow(repo domain.Repository) *PaymentFlow {
	logger := zerolog.Nop()
	clock := domain.FixedClock{T: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	return NewPaymentFlow(NewBookingService(repo, nil, nil, clock, 30, &logger), &logger)
}

func TestPaymentFlowStates(t *testing.T) {
	t.Run("BeginOnlyFromIdle", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		require.NoError(t, flow.Begin(testDraft()))
		assert.Equal(t, FlowAwaitingMethod, flow.State())

		assert.ErrorIs(t, flow.Begin(testDraft()), ErrInvalidFlowState)
	})

	t.Run("BeginWithoutDraft", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		assert.ErrorIs(t, flow.Begin(nil), ErrMissingSlot)
		assert.Equal(t, FlowIdle, flow.State())
	})

	t.Run("CardAndOnlineRejected", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		require.NoError(t, flow.Begin(testDraft()))

		assert.ErrorIs(t, flow.SelectMethod(models.PaymentMethodCard), ErrPaymentMethodUnavailable)
		assert.Equal(t, FlowAwaitingMethod, flow.State())

		assert.ErrorIs(t, flow.SelectMethod(models.PaymentMethodOnline), ErrPaymentMethodUnavailable)
		assert.ErrorIs(t, flow.SelectMethod("crypto"), ErrPaymentMethodUnavailable)

		// после отказов наличные по-прежнему принимаются
		assert.NoError(t, flow.SelectMethod(models.PaymentMethodCash))
	})

	t.Run("ConfirmRequiresMethod", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		require.NoError(t, flow.Begin(testDraft()))

		_, err := flow.Confirm(context.Background())
		assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
		assert.Equal(t, FlowAwaitingMethod, flow.State())
	})

	t.Run("ConfirmFromIdle", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		_, err := flow.Confirm(context.Background())
		assert.ErrorIs(t, err, ErrInvalidFlowState)
	})

	t.Run("CancelAfterSuccessForbidden", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))
		_, err := flow.Confirm(context.Background())
		require.NoError(t, err)

		assert.ErrorIs(t, flow.Cancel(), ErrInvalidFlowState)
	})

	t.Run("CancelResetsDraft", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.Cancel())

		assert.Equal(t, FlowIdle, flow.State())
		assert.Nil(t, flow.Draft())

		// после сброса можно начать заново
		assert.NoError(t, flow.Begin(testDraft()))
	})
}

func TestPaymentFlowConfirm(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		repo := newStubRepo()
		flow := newTestFlow(repo)

		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))

		booking, err := flow.Confirm(context.Background())
		require.NoError(t, err)
		require.NotNil(t, booking)

		assert.Equal(t, FlowSucceeded, flow.State())
		assert.Equal(t, models.PaymentMethodCash, booking.PaymentMethod)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, models.StatusConfirmed, booking.Status)
		assert.Equal(t, float64(7500), booking.TotalPrice)
		assert.Equal(t, 1, repo.commitCalls)

		// код вида BK{13 цифр}{5 символов}
		assert.True(t, strings.HasPrefix(booking.Code, "BK"))
		assert.Len(t, booking.Code, 20)
	})

	t.Run("SlotTakenLeadsToFailed", func(t *testing.T) {
		repo := newStubRepo()
		repo.commitErr = database.ErrSlotUnavailable
		flow := newTestFlow(repo)

		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))

		_, err := flow.Confirm(context.Background())
		assert.ErrorIs(t, err, database.ErrSlotUnavailable)
		assert.Equal(t, FlowFailed, flow.State())
		assert.ErrorIs(t, flow.LastErr(), database.ErrSlotUnavailable)
	})

	t.Run("RetryAfterFailure", func(t *testing.T) {
		repo := newStubRepo()
		repo.commitErr = database.ErrSlotUnavailable
		flow := newTestFlow(repo)

		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))
		_, err := flow.Confirm(context.Background())
		require.Error(t, err)

		require.NoError(t, flow.Retry())
		assert.Equal(t, FlowAwaitingMethod, flow.State())
		assert.NoError(t, flow.LastErr())

		// хранилище ожило, вторая попытка проходит
		repo.commitErr = nil
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))
		booking, err := flow.Confirm(context.Background())
		require.NoError(t, err)
		assert.Equal(t, FlowSucceeded, flow.State())
		assert.NotNil(t, booking)
	})

	t.Run("RetryOnlyFromFailed", func(t *testing.T) {
		flow := newTestFlow(newStubRepo())
		assert.ErrorIs(t, flow.Retry(), ErrInvalidFlowState)
	})

	t.Run("SecondConfirmDuringCommit", func(t *testing.T) {
		repo := newStubRepo()
		repo.commitGate = make(chan struct{})
		flow := newTestFlow(repo)

		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))

		done := make(chan error, 1)
		go func() {
			_, err := flow.Confirm(context.Background())
			done <- err
		}()

		// ждем, пока первый Confirm займет состояние
		require.Eventually(t, func() bool {
			return flow.State() == FlowConfirming
		}, time.Second, 5*time.Millisecond)

		_, err := flow.Confirm(context.Background())
		assert.ErrorIs(t, err, ErrCommitInFlight)

		close(repo.commitGate)
		require.NoError(t, <-done)
		assert.Equal(t, FlowSucceeded, flow.State())
	})

	t.Run("OnCompleteFires", func(t *testing.T) {
		repo := newStubRepo()
		flow := newTestFlow(repo)

		completed := make(chan *models.Booking, 1)
		flow.SetOnComplete(10*time.Millisecond, func(b *models.Booking) {
			completed <- b
		})

		require.NoError(t, flow.Begin(testDraft()))
		require.NoError(t, flow.SelectMethod(models.PaymentMethodCash))
		booking, err := flow.Confirm(context.Background())
		require.NoError(t, err)

		select {
		case got := <-completed:
			assert.Equal(t, booking.Code, got.Code)
		case <-time.After(time.Second):
			t.Fatal("onComplete не сработал")
		}
	})
}
