package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher(t *testing.T) {
	t.Run("Should deliver to every subscriber of the type", func(t *testing.T) {
		d := NewInMemoryDispatcher()
		var got []string
		d.Subscribe(func(_ context.Context, e Event) error {
			got = append(got, "first:"+e.StaffID)
			return nil
		}, EventStaffProfileCreated)
		d.Subscribe(func(_ context.Context, e Event) error {
			got = append(got, "second:"+e.StaffID)
			return nil
		}, EventStaffProfileCreated)
		d.Subscribe(func(context.Context, Event) error {
			t.Fatal("unexpected delivery")
			return nil
		}, EventStaffSignedIn)

		err := d.Publish(context.Background(), NewEvent(EventStaffProfileCreated, "id-1", "", nil))
		assert.NoError(t, err)
		assert.Equal(t, []string{"first:id-1", "second:id-1"}, got)
	})

	t.Run("Should register one handler for several types", func(t *testing.T) {
		d := NewInMemoryDispatcher()
		var got []EventType
		d.Subscribe(func(_ context.Context, e Event) error {
			got = append(got, e.Type)
			return nil
		}, EventStaffProfileCreated, EventStaffProfileUpdated)

		require.NoError(t, d.Publish(context.Background(), NewEvent(EventStaffProfileUpdated, "id-1", "admin-1", nil)))
		require.NoError(t, d.Publish(context.Background(), NewEvent(EventStaffProfileCreated, "id-2", "id-2", nil)))
		require.NoError(t, d.Publish(context.Background(), NewEvent(EventStaffSignedIn, "id-2", "id-2", nil)))
		assert.Equal(t, []EventType{EventStaffProfileUpdated, EventStaffProfileCreated}, got)
	})

	t.Run("Should keep delivering after a handler fails", func(t *testing.T) {
		d := NewInMemoryDispatcher()
		delivered := false
		redisDown := errors.New("redis down")
		d.Subscribe(func(context.Context, Event) error {
			return redisDown
		}, EventStaffProfileUpdated)
		d.Subscribe(func(context.Context, Event) error {
			panic("nil publisher")
		}, EventStaffProfileUpdated)
		d.Subscribe(func(context.Context, Event) error {
			delivered = true
			return nil
		}, EventStaffProfileUpdated)

		err := d.Publish(context.Background(), NewEvent(EventStaffProfileUpdated, "id-1", "admin-1", nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, redisDown)
		assert.ErrorContains(t, err, "handler panic: nil publisher")
		assert.ErrorContains(t, err, string(EventStaffProfileUpdated))
		assert.True(t, delivered)
	})

	t.Run("Should stamp id and time", func(t *testing.T) {
		e := NewEvent(EventStaffSignedIn, "id-1", "id-1", StaffSignedInPayload{Role: "doctor"})
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	})
}
