// Package realtime relays change notifications over Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/observability"
)

// Topic names a change feed. Each maps to one Redis channel, prefix+topic.
// The gateway itself publishes only TopicStaff. The clinical services own the
// patients, appointments, rooms and billing records and publish Change JSON
// to their channels; the gateway only relays those feeds to dashboards.
type Topic string

const (
	TopicStaff        Topic = "staff"
	TopicPatients     Topic = "patients"
	TopicAppointments Topic = "appointments"
	TopicRooms        Topic = "rooms"
	TopicBilling      Topic = "billing"
)

var knownTopics = map[Topic]struct{}{
	TopicStaff:        {},
	TopicPatients:     {},
	TopicAppointments: {},
	TopicRooms:        {},
	TopicBilling:      {},
}

// ErrUnknownTopic is returned for topics outside the known set.
var ErrUnknownTopic = errors.New("realtime: unknown topic")

// ParseTopic validates a raw topic name.
func ParseTopic(raw string) (Topic, error) {
	topic := Topic(raw)
	if _, ok := knownTopics[topic]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, raw)
	}
	return topic, nil
}

// Change is one notification on a topic.
type Change struct {
	ID       string          `json:"id"`
	Topic    Topic           `json:"topic"`
	Type     string          `json:"type"`
	RecordID string          `json:"record_id,omitempty"`
	At       time.Time       `json:"at"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Hub publishes and subscribes to change topics.
type Hub struct {
	client  *redis.Client
	prefix  string
	logger  *zap.Logger
	metrics *observability.Metrics
	open    atomic.Int64
}

// NewHub creates a hub using prefix for channel names.
func NewHub(client *redis.Client, prefix string, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{client: client, prefix: prefix, logger: logger, metrics: metrics}
}

func (h *Hub) channel(topic Topic) string {
	return h.prefix + string(topic)
}

// Publish sends a change. ID and At are filled in when empty.
func (h *Hub) Publish(ctx context.Context, change Change) error {
	if _, ok := knownTopics[change.Topic]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, change.Topic)
	}
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return h.client.Publish(ctx, h.channel(change.Topic), payload).Err()
}

// Subscribe opens a subscription. Callers must Close it when their stream
// ends; OpenSubscriptions exposes leaks.
func (h *Hub) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	if _, ok := knownTopics[topic]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	pubsub := h.client.Subscribe(ctx, h.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &Subscription{
		topic:   topic,
		pubsub:  pubsub,
		changes: make(chan Change, 16),
		done:    make(chan struct{}),
		onClose: func() {
			h.open.Add(-1)
			h.metrics.SubscriptionClosed()
		},
	}
	h.open.Add(1)
	h.metrics.SubscriptionOpened()

	go sub.run(h.logger)
	return sub, nil
}

// OpenSubscriptions reports subscriptions not yet closed.
func (h *Hub) OpenSubscriptions() int64 {
	return h.open.Load()
}

// Subscription is a live feed of changes for one topic.
type Subscription struct {
	topic     Topic
	pubsub    *redis.PubSub
	changes   chan Change
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Changes delivers decoded changes until the subscription is closed.
func (s *Subscription) Changes() <-chan Change {
	return s.changes
}

// Close tears down the Redis subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		s.onClose()
	})
	return err
}

func (s *Subscription) run(logger *zap.Logger) {
	defer close(s.changes)
	messages := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logger.Warn("dropping malformed change", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case s.changes <- change:
			case <-s.done:
				return
			}
		}
	}
}
