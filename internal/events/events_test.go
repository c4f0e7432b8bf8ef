package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	t.Run("PublishJSONDeliversPayload", func(t *testing.T) {
		bus := NewEventBus()

		var got BookingEventPayload
		bus.Subscribe(EventBookingCommitted, func(ev *Event) error {
			return json.Unmarshal(ev.Payload, &got)
		})

		payload := BookingEventPayload{BookingID: 7, Code: "BK7", RangeID: "pistol-25", ShooterCount: 2}
		require.NoError(t, bus.PublishJSON(EventBookingCommitted, payload))

		assert.Equal(t, int64(7), got.BookingID)
		assert.Equal(t, "BK7", got.Code)
		assert.Equal(t, int64(2), got.ShooterCount)
	})

	t.Run("OnlyMatchingTypeNotified", func(t *testing.T) {
		bus := NewEventBus()

		var committed, failed int
		bus.Subscribe(EventBookingCommitted, func(ev *Event) error { committed++; return nil })
		bus.Subscribe(EventCommitFailed, func(ev *Event) error { failed++; return nil })

		require.NoError(t, bus.PublishJSON(EventCommitFailed, BookingEventPayload{BookingID: 1}))

		assert.Equal(t, 0, committed)
		assert.Equal(t, 1, failed)
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		bus := NewEventBus()

		var calls int
		handler := func(ev *Event) error { calls++; return nil }
		bus.Subscribe(EventBookingCommitted, handler)
		bus.Subscribe(EventBookingCommitted, handler)

		require.NoError(t, bus.PublishJSON(EventBookingCommitted, BookingEventPayload{}))
		assert.Equal(t, 2, calls)
	})

	t.Run("HandlerErrorDoesNotStopOthers", func(t *testing.T) {
		bus := NewEventBus()

		var second bool
		bus.Subscribe(EventBookingCommitted, func(ev *Event) error { return errors.New("boom") })
		bus.Subscribe(EventBookingCommitted, func(ev *Event) error { second = true; return nil })

		require.NoError(t, bus.PublishJSON(EventBookingCommitted, BookingEventPayload{}))
		assert.True(t, second)
	})

	t.Run("NilBusIsNoop", func(t *testing.T) {
		var bus *EventBus
		assert.NoError(t, bus.PublishJSON(EventBookingCommitted, BookingEventPayload{}))
	})
}
