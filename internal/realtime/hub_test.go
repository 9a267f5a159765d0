package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/observability"
)

func newTestHub(t *testing.T) (*Hub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHub(client, "hms:changes:", zap.NewNop(), observability.NewMetrics()), mr
}

func receive(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case change, ok := <-sub.Changes():
		require.True(t, ok, "subscription closed")
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestHub_PublishSubscribe(t *testing.T) {
	t.Run("Should deliver published changes to subscribers", func(t *testing.T) {
		hub, _ := newTestHub(t)
		ctx := context.Background()

		sub, err := hub.Subscribe(ctx, TopicStaff)
		require.NoError(t, err)
		defer sub.Close()

		data, _ := json.Marshal(map[string]string{"role": "nurse"})
		require.NoError(t, hub.Publish(ctx, Change{Topic: TopicStaff, Type: "staff_profile_created", RecordID: "id-1", Data: data}))

		change := receive(t, sub)
		assert.Equal(t, TopicStaff, change.Topic)
		assert.Equal(t, "id-1", change.RecordID)
		assert.NotEmpty(t, change.ID)
		assert.JSONEq(t, `{"role":"nurse"}`, string(change.Data))
	})

	t.Run("Should not leak changes across topics", func(t *testing.T) {
		hub, mr := newTestHub(t)
		ctx := context.Background()

		sub, err := hub.Subscribe(ctx, TopicPatients)
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, hub.Publish(ctx, Change{Topic: TopicStaff, Type: "ignored"}))
		mr.Publish("hms:changes:patients", `{"topic":"patients","type":"insert","record_id":"p-1"}`)

		change := receive(t, sub)
		assert.Equal(t, "p-1", change.RecordID)
	})

	t.Run("Should skip malformed payloads", func(t *testing.T) {
		hub, mr := newTestHub(t)
		sub, err := hub.Subscribe(context.Background(), TopicRooms)
		require.NoError(t, err)
		defer sub.Close()

		mr.Publish("hms:changes:rooms", "not json")
		mr.Publish("hms:changes:rooms", `{"topic":"rooms","type":"update","record_id":"r-9"}`)

		assert.Equal(t, "r-9", receive(t, sub).RecordID)
	})
}

func TestHub_SubscriptionLifecycle(t *testing.T) {
	t.Run("Should count open subscriptions and release them on close", func(t *testing.T) {
		hub, _ := newTestHub(t)
		ctx := context.Background()

		first, err := hub.Subscribe(ctx, TopicStaff)
		require.NoError(t, err)
		second, err := hub.Subscribe(ctx, TopicBilling)
		require.NoError(t, err)
		assert.Equal(t, int64(2), hub.OpenSubscriptions())

		require.NoError(t, first.Close())
		assert.NoError(t, first.Close())
		assert.Equal(t, int64(1), hub.OpenSubscriptions())

		require.NoError(t, second.Close())
		assert.Equal(t, int64(0), hub.OpenSubscriptions())

		select {
		case _, ok := <-first.Changes():
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("changes channel not closed")
		}
	})

	t.Run("Should reject unknown topics", func(t *testing.T) {
		hub, _ := newTestHub(t)
		_, err := hub.Subscribe(context.Background(), Topic("payroll"))
		assert.ErrorIs(t, err, ErrUnknownTopic)
		assert.ErrorIs(t, hub.Publish(context.Background(), Change{Topic: "payroll"}), ErrUnknownTopic)
		assert.Equal(t, int64(0), hub.OpenSubscriptions())

		_, err = ParseTopic("appointments")
		assert.NoError(t, err)
	})
}
