package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should run handlers in subscription order", func(t *testing.T) {
		// given
		eb := NewEventBus()
		var calls []string
		eb.Subscribe(CostRecordChangedEvent, func(Event) error {
			calls = append(calls, "first")
			return nil
		})
		eb.Subscribe(CostRecordChangedEvent, func(Event) error {
			calls = append(calls, "second")
			return nil
		})
		eb.Subscribe("other", func(Event) error {
			calls = append(calls, "other")
			return nil
		})

		// when
		err := eb.Publish(NewEvent(context.Background(), CostRecordChangedEvent, CostRecordChanged{PhaseId: 1}))

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("should keep dispatching after a failing handler", func(t *testing.T) {
		// given
		eb := NewEventBus()
		boom := errors.New("boom")
		reached := false
		eb.Subscribe(CostRecordChangedEvent, func(Event) error { return boom })
		eb.Subscribe(CostRecordChangedEvent, func(Event) error { panic("kaput") })
		eb.Subscribe(CostRecordChangedEvent, func(Event) error {
			reached = true
			return nil
		})

		// when
		err := eb.Publish(NewEvent(context.Background(), CostRecordChangedEvent, nil))

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "2 handler(s) failed")
		assert.Contains(t, err.Error(), "kaput")
		assert.True(t, reached)
	})

	t.Run("should not dispatch on a cancelled context", func(t *testing.T) {
		// given
		eb := NewEventBus()
		called := false
		eb.Subscribe(CostRecordChangedEvent, func(Event) error {
			called = true
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		err := eb.Publish(NewEvent(ctx, CostRecordChangedEvent, nil))

		// then
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("should stop calling a handler after unsubscribe", func(t *testing.T) {
		// given
		eb := NewEventBus()
		calls := 0
		unsubscribe := eb.Subscribe(CostRecordChangedEvent, func(Event) error {
			calls++
			return nil
		})
		require.NoError(t, eb.Publish(NewEvent(context.Background(), CostRecordChangedEvent, nil)))

		// when
		unsubscribe()
		err := eb.Publish(NewEvent(context.Background(), CostRecordChangedEvent, nil))

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestSubscribeTyped(t *testing.T) {
	t.Run("should hand over typed payloads and the publisher context", func(t *testing.T) {
		// given
		type key struct{}
		eb := NewEventBus()
		var got CostRecordChanged
		var fromCtx any
		SubscribeTyped(eb, CostRecordChangedEvent, func(e EventT[CostRecordChanged]) error {
			got = e.Data
			fromCtx = e.Context().Value(key{})
			return nil
		})
		ctx := context.WithValue(context.Background(), key{}, "request-1")

		// when
		err := eb.Publish(NewEvent(ctx, CostRecordChangedEvent, CostRecordChanged{PhaseId: 3, Category: "labour", Change: "approved"}))

		// then
		require.NoError(t, err)
		assert.Equal(t, 3, got.PhaseId)
		assert.Equal(t, "approved", got.Change)
		assert.Equal(t, "request-1", fromCtx)
	})

	t.Run("should skip payloads of another type", func(t *testing.T) {
		eb := NewEventBus()
		called := false
		SubscribeTyped(eb, CostRecordChangedEvent, func(EventT[CostRecordChanged]) error {
			called = true
			return nil
		})

		err := eb.Publish(NewEvent(context.Background(), CostRecordChangedEvent, "not a record"))

		require.NoError(t, err)
		assert.False(t, called)
	})
}
